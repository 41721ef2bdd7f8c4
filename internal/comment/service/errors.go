package service

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/MyNameIsWhaaat/commentthread/internal/comment/model"
	"github.com/MyNameIsWhaaat/commentthread/internal/comment/storage"
)

// storeErr translates a backend error: a missing record becomes ErrNotFound,
// anything else (timeouts included) is wrapped in ErrStorage.
func storeErr(op string, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}

func validateContent(content string) (string, error) {
	t := strings.TrimSpace(content)
	if t == "" || utf8.RuneCountInString(t) > model.MaxContentLength {
		return "", ErrInvalidInput
	}
	return t, nil
}
