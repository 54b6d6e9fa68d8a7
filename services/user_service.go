package services

import (
	"github.com/chatterbox/engine/config"
	"github.com/chatterbox/engine/db"
	"github.com/chatterbox/engine/models"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// UserService owns the locally fabricated identity: the current-user id lives
// in the defaults store, the user record in the object-graph store.
type UserService interface {
	CurrentUser() (models.User, error)
	CreateUser(username string) (models.User, error)
}

type userService struct {
	chatRepo db.ChatRepository
	defaults db.DefaultsRepository
	conf     *config.Config
	log      *logrus.Logger
}

func NewUserService(chatRepo db.ChatRepository, defaults db.DefaultsRepository, conf *config.Config, log *logrus.Logger) UserService {
	return &userService{
		chatRepo: chatRepo,
		defaults: defaults,
		conf:     conf,
		log:      log,
	}
}

// CurrentUser returns the persisted current user, fabricating and persisting
// one on first launch. The defaults store is written once; afterwards the id
// is read-mostly.
func (s *userService) CurrentUser() (models.User, error) {
	if id := s.defaults.CurrentUserID(); id != "" {
		user, err := s.chatRepo.GetUser(id)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, db.ErrNotFound) {
			return models.User{}, err
		}
		// defaults id with no stored record, e.g. a wiped database;
		// recreate under the same id so the defaults entry stays valid
		s.log.Warnf("current user %s missing from store, recreating", id)
		user = models.User{ID: id, Username: s.conf.DefaultUsername}
		if err := s.chatRepo.SaveUser(user); err != nil {
			return models.User{}, err
		}
		return user, nil
	}

	user := models.User{ID: uuid.NewString(), Username: s.conf.DefaultUsername}
	if err := s.chatRepo.SaveUser(user); err != nil {
		return models.User{}, err
	}
	if err := s.defaults.SetCurrentUserID(user.ID); err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (s *userService) CreateUser(username string) (models.User, error) {
	user := models.User{ID: uuid.NewString(), Username: username}
	if err := s.chatRepo.SaveUser(user); err != nil {
		return models.User{}, err
	}
	return user, nil
}
