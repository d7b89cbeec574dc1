package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/rocketscienceinc/bingo-backend/internal/bingo"
	"github.com/rocketscienceinc/bingo-backend/internal/usecase"
)

const maxBodyBytes = 1 << 16

var (
	validate = validator.New()

	errBadRequest = errors.New("bad request")
)

type sessionRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=64"`
	Desc        *string `json:"desc" validate:"omitempty,max=256"`
	Private     *bool   `json:"private"`
	MaxPlayers  *int    `json:"max_players" validate:"omitempty,min=1,max=100"`
	WinLimit    *int    `json:"win_limit" validate:"omitempty,min=0,max=100"`
	DurationSec *int    `json:"duration_sec" validate:"omitempty,min=0,max=86400"`
	Speed       *int    `json:"speed"`
}

func (that *sessionRequest) params() usecase.SessionParams {
	params := usecase.SessionParams{
		Name:        that.Name,
		Desc:        that.Desc,
		Private:     that.Private,
		MaxPlayers:  that.MaxPlayers,
		WinLimit:    that.WinLimit,
		DurationSec: that.DurationSec,
	}

	if that.Speed != nil {
		speed := bingo.Speed(*that.Speed)
		params.Speed = &speed
	}

	return params
}

type markRequest struct {
	Column string `json:"column" validate:"required,oneof=b i n g o"`
	Number int    `json:"number" validate:"required,min=1,max=100"`
}

// speedRequest - either a raw speed or one of the preset names.
type speedRequest struct {
	Speed int    `json:"speed"`
	Name  string `json:"name" validate:"omitempty,oneof=fast normal slow"`
}

func (that *speedRequest) speed() bingo.Speed {
	if that.Name != "" {
		return bingo.ParseSpeed(that.Name)
	}
	return bingo.Speed(that.Speed)
}

// decodeRequest - reads a JSON body into req and validates it. An empty body is an empty request.
func decodeRequest(w http.ResponseWriter, r *http.Request, req any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))

	if err := decoder.Decode(req); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %w", errBadRequest, err)
	}

	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %w", errBadRequest, err)
	}

	return nil
}
