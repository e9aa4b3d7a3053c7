package backend

import (
	"fmt"
	"slices"
	"strings"

	"github.com/yukikurage/cms-resource-broker/internal/config"
	"github.com/yukikurage/cms-resource-broker/internal/database"
	"github.com/yukikurage/cms-resource-broker/internal/repository"
	"github.com/yukikurage/cms-resource-broker/internal/repository/memory"
	"gorm.io/gorm"
)

// Options bundles what a backend factory may need.
type Options struct {
	Database *config.DatabaseConfig
	// DB reuses an open connection instead of dialing Database.
	DB *gorm.DB
	// Migrate runs schema migrations after connecting.
	Migrate bool
}

// Factory builds the stores of one backend.
type Factory func(opts Options) (*repository.Stores, error)

var factories = map[string]Factory{
	"gorm":   openGorm,
	"memory": openMemory,
}

// Open instantiates a backend by name.
func Open(name string, opts Options) (*repository.Stores, error) {
	if f, ok := factories[name]; ok {
		return f(opts)
	}
	return nil, fmt.Errorf("unknown storage backend %q (registered: %s)", name, strings.Join(Names(), ", "))
}

// Names returns the registered backend names in order.
func Names() []string {
	names := make([]string, 0, len(factories))
	for n := range factories {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

func openGorm(opts Options) (*repository.Stores, error) {
	db := opts.DB
	if db == nil {
		if opts.Database == nil {
			return nil, fmt.Errorf("gorm backend requires database settings")
		}
		var err error
		if db, err = database.Connect(opts.Database); err != nil {
			return nil, err
		}
	}

	if opts.Migrate {
		if err := database.MigrateDatabase(db); err != nil {
			return nil, err
		}
	}

	return repository.NewStores(db), nil
}

func openMemory(Options) (*repository.Stores, error) {
	return memory.New()
}
