package social

import (
	"backend-snsapp/internal/db"
	"backend-snsapp/internal/logger"

	"github.com/go-playground/validator/v10"
)

// Service implements feeds, post lifecycle and the like/follow toggles.
// The caller is always an explicit argument.
type Service struct {
	db       db.Querier
	log      *logger.Logger
	validate *validator.Validate
}

func NewService(db db.Querier, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Discard()
	}
	return &Service{
		db:       db,
		log:      log,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}
