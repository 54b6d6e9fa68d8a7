package db

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const currentUserKey = "current_user_id"

// DefaultsRepository is the app-local defaults store: a single-file key/value
// store holding the fabricated current-user id, read at startup and written
// once on first bootstrap.
type DefaultsRepository interface {
	CurrentUserID() string
	SetCurrentUserID(id string) error
}

type viperDefaults struct {
	v    *viper.Viper
	path string
}

func NewDefaultsRepo(path string) (DefaultsRepository, error) {
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return nil, errors.Wrap(err, "create defaults dir")
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		if !os.IsNotExist(err) {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, errors.Wrap(err, "read defaults")
			}
		}
	}
	return &viperDefaults{v: v, path: path}, nil
}

func (d *viperDefaults) CurrentUserID() string {
	return d.v.GetString(currentUserKey)
}

func (d *viperDefaults) SetCurrentUserID(id string) error {
	d.v.Set(currentUserKey, id)
	if err := d.v.WriteConfigAs(d.path); err != nil {
		return errors.Wrap(err, "write defaults")
	}
	return nil
}
