package simconfig

import (
	"testing"

	berrors "github.com/Aidin1998/bourse_engine/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestValidateRejectsZeroTickSize(t *testing.T) {
	cfg := SimConfig{TickSize: 0, StepSize: 1000, NSteps: 10}
	err := Validate(cfg)
	assert.Error(t, err)
}

func TestValidateRejectsZeroStepSize(t *testing.T) {
	cfg := SimConfig{TickSize: 1, StepSize: 0, NSteps: 10}
	err := Validate(cfg)
	assert.Error(t, err)
}

func TestValidateRejectsZeroNSteps(t *testing.T) {
	cfg := SimConfig{TickSize: 1, StepSize: 1000, NSteps: 0}
	err := Validate(cfg)
	assert.Error(t, err)
}

func TestValidateAcceptsMinimalConfig(t *testing.T) {
	cfg := SimConfig{TickSize: 1, StepSize: 1000, NSteps: 1, MaxWorkers: 0}
	err := Validate(cfg)
	assert.NoError(t, err)
}

func TestLoadReturnsConfigErrorWhenFileMissing(t *testing.T) {
	_, err := Load("does-not-exist", t.TempDir())
	assert.Error(t, err)
	assert.True(t, berrors.Is(err, berrors.ErrConfigError))
}
