package runner

import (
	"github.com/go-playground/validator/v10"
	"github.com/samber/do/v2"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// BuildContainer creates a new DI container with all dependencies registered.
// Dependencies are lazily initialized when first requested.
func BuildContainer(logger *zap.Logger) *do.RootScope {
	injector := do.New()

	// Register logger (eager - already created)
	do.ProvideValue(injector, logger)

	// Register the filesystem file inputs read from (lazy)
	do.Provide(injector, func(i do.Injector) (afero.Fs, error) {
		return afero.NewOsFs(), nil
	})

	// Register the job validator (lazy)
	do.Provide(injector, func(i do.Injector) (*validator.Validate, error) {
		return validator.New(validator.WithRequiredStructEnabled()), nil
	})

	return injector
}
