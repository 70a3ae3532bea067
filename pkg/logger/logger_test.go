package logger

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNew_ParsesLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"debug": zerolog.DebugLevel,
		"info":  zerolog.InfoLevel,
		"warn":  zerolog.WarnLevel,
		"error": zerolog.ErrorLevel,
	}

	for name, want := range cases {
		log := New(Config{Level: name})
		assert.Equal(t, want, log.GetLevel(), "level %q", name)
	}
}

func TestNew_UnknownLevelFallsBackToInfo(t *testing.T) {
	log := New(Config{Level: "verbose"})
	assert.Equal(t, zerolog.InfoLevel, log.GetLevel())

	log = New(Config{Level: ""})
	assert.Equal(t, zerolog.InfoLevel, log.GetLevel())
}

func TestNew_LevelNotGlobal(t *testing.T) {
	prev := zerolog.GlobalLevel()

	_ = New(Config{Level: "error"})
	assert.Equal(t, prev, zerolog.GlobalLevel())
}
