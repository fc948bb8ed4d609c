package store

import (
	"fmt"
)

type ErrDuplicateKey = error

func NewDuplicateKeyError(key string) ErrDuplicateKey {
	return fmt.Errorf("document with primary key %q already exists", key)
}

type ErrNotFound = error

func NewNotFoundError(key string) ErrNotFound {
	return fmt.Errorf("no document with primary key %q", key)
}
