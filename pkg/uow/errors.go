package uow

import "errors"

// Ошибки регистрации и получения репозиториев. Обе стороны ошибочны на этапе
// инициализации приложения, в рантайме они не возникают.
var (
	ErrRepositoryNotRegistered     = errors.New("[uow] repository not registered")
	ErrRepositoryAlreadyRegistered = errors.New("[uow] repository already registered")
	ErrInvalidRepositoryType       = errors.New("[uow] invalid repository type")
)
