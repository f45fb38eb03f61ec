package app

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/gltfview/internal/logger"
	"github.com/Faultbox/gltfview/internal/render"
)

// releaseStep is one entry of the cleanup sequence.
type releaseStep struct {
	name string
	run  func() error
}

// cleanupSteps lists the releases in the order they must happen. The GPU
// barrier comes first: nothing the GPU may still read is freed before it.
func (a *App) cleanupSteps(engine render.Engine) []releaseStep {
	return []releaseStep{
		{"gpu-barrier", func() error {
			return render.WaitAndDestroy(engine.CreateFence())
		}},
		{"viewer", func() error {
			if a.viewer != nil {
				a.viewer.Destroy()
				a.viewer = nil
			}
			return nil
		}},
		{"asset", func() error {
			if a.asset == nil {
				return nil
			}
			err := a.loader.DestroyAsset(a.asset)
			a.asset = nil
			return err
		}},
		{"materials", func() error {
			if a.loader == nil {
				return nil
			}
			return a.loader.DestroyMaterials()
		}},
		{"loader", func() error {
			if a.loader == nil {
				return nil
			}
			err := a.loader.Destroy()
			a.loader = nil
			return err
		}},
		{"names", func() error {
			if a.names != nil {
				a.names.Clear()
				a.names = nil
			}
			return nil
		}},
	}
}

// Cleanup waits for the GPU and then releases the viewer, asset, material
// templates, loader and name registry, in that order. It may run once, after
// setup; a second call returns ErrInvalidState and releases nothing.
func (a *App) Cleanup(engine render.Engine) error {
	if a.state != StateRunning && a.state != StateFailed {
		return fmt.Errorf("%w: cleanup in state %s", ErrInvalidState, a.state)
	}
	a.state = StateCleanup
	defer func() { a.state = StateTerminated }()

	var errs []error
	for i, step := range a.cleanupSteps(engine) {
		err := step.run()
		if err == nil {
			logger.Debug("released", zap.String("step", step.name))
			continue
		}
		if i == 0 {
			// Without the barrier, freeing GPU-visible objects is unsafe: leak them.
			logger.Error("GPU barrier failed, skipping release", zap.Error(err))
			return fmt.Errorf("cleanup %s: %w", step.name, err)
		}
		logger.Warn("release failed", zap.String("step", step.name), zap.Error(err))
		errs = append(errs, fmt.Errorf("cleanup %s: %w", step.name, err))
	}
	return errors.Join(errs...)
}
