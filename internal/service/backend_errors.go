package service

import (
	stderrors "errors"
	"fmt"

	"WorkoutMate/pkg/backend"
	"WorkoutMate/pkg/errors"
)

// mapBackendError 把后端错误转换为业务错误，保留原始错误便于日志
func mapBackendError(err error) error {
	switch {
	case err == nil:
		return nil
	case stderrors.Is(err, backend.ErrUnauthorized):
		return errors.Unauthorized
	case stderrors.Is(err, backend.ErrNotFound):
		return errors.CommunityNotFound
	default:
		return fmt.Errorf("%w: %v", errors.BackendUnavailable, err)
	}
}
