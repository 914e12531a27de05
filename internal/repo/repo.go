package repo

import (
	"errors"

	"gorm.io/gorm"
)

// ErrInsufficientStock is returned by Reserve when the admission check
// against available stock fails. Missing or inactive products surface as
// gorm.ErrRecordNotFound, the way the rest of the repo layer reports them.
var ErrInsufficientStock = errors.New("insufficient stock")

type GormRepo struct {
	DB *gorm.DB
}
