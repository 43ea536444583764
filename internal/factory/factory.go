package factory

import (
	"fmt"

	"go-histopath/internal/config"
	"go-histopath/internal/grader"
	"go-histopath/internal/storage"
	"go-histopath/internal/strategy"
)

// StorageType represents different types of slide storage backends
type StorageType string

const (
	// HTTPStorage for HTTP-based slide fetching
	HTTPStorage StorageType = "http"
	// AzureStorage for Azure blob storage
	AzureStorage StorageType = "azure"
)

// StorageFactory creates slide storage implementations
type StorageFactory interface {
	CreateStorage(storageType StorageType, cfg *config.Config) (storage.SlideFetcher, error)
}

// GraderFactory creates slide graders from named profiles
type GraderFactory interface {
	CreateGrader(profileName string) (grader.SlideGrader, error)
}

// storageFactory implements StorageFactory
type storageFactory struct{}

// NewStorageFactory creates a new storage factory
func NewStorageFactory() StorageFactory {
	return &storageFactory{}
}

// CreateStorage creates a storage implementation based on the specified type
func (f *storageFactory) CreateStorage(storageType StorageType, cfg *config.Config) (storage.SlideFetcher, error) {
	switch storageType {
	case HTTPStorage:
		return storage.NewHTTPSlideFetcher(), nil
	case AzureStorage:
		return storage.NewAzureSlideFetcher(cfg.AzureAccountName, cfg.AzureAccountKey)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
}

// graderFactory implements GraderFactory over the profile registry
type graderFactory struct {
	profiles *strategy.ProfileRegistry
}

// NewGraderFactory creates a new grader factory
func NewGraderFactory(profiles *strategy.ProfileRegistry) GraderFactory {
	return &graderFactory{profiles: profiles}
}

// CreateGrader builds a grader for the named profile
func (f *graderFactory) CreateGrader(profileName string) (grader.SlideGrader, error) {
	profile, err := f.profiles.Resolve(profileName)
	if err != nil {
		return nil, err
	}
	return grader.NewSlideGrader(profile.Options())
}

// ComponentFactory combines all factories
type ComponentFactory struct {
	StorageFactory StorageFactory
	GraderFactory  GraderFactory
}

// NewComponentFactory creates a new component factory
func NewComponentFactory(profiles *strategy.ProfileRegistry) *ComponentFactory {
	return &ComponentFactory{
		StorageFactory: NewStorageFactory(),
		GraderFactory:  NewGraderFactory(profiles),
	}
}
