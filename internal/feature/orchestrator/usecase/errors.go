package usecase

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingURL は分析対象のURLが空であることを示します。
	ErrMissingURL = errors.New("no media URL provided")

	// ErrNetwork はAnalysis Serviceに到達できなかったことを示します。
	ErrNetwork = errors.New("could not reach the analysis service")

	// ErrProtocol はレスポンスが期待する形式ではなかったことを示します。
	// 常にServiceErrorに包まれて返ります。
	ErrProtocol = errors.New("unexpected response from the analysis service")
)

// ServiceError はAnalysis Serviceが2xx以外を返した、または不正なボディを返したことを示します。
type ServiceError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("analysis service (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("analysis service returned status %d", e.StatusCode)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// UserMessage はエラーを画面表示用の短いメッセージに変換します。
func UserMessage(err error) string {
	var svcErr *ServiceError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNetwork):
		return "Could not reach the analysis service"
	case errors.Is(err, ErrMissingURL):
		return "No media URL provided"
	case errors.Is(err, ErrProtocol):
		return "Unexpected response from the analysis service"
	case errors.As(err, &svcErr):
		return fmt.Sprintf("Analysis service error (status %d)", svcErr.StatusCode)
	}
	return err.Error()
}
