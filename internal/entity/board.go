package entity

import (
	"fmt"

	"github.com/rocketscienceinc/bingo-backend/internal/bingo"
)

// Board is a joined player's card as stored and served. ID is the player number.
type Board struct {
	ID        int          `json:"id"`
	SessionID int64        `json:"session_id"`
	CardID    string       `json:"card_id"`
	B         []int        `json:"b"`
	I         []int        `json:"i"`
	N         []int        `json:"n"`
	G         []int        `json:"g"`
	O         []int        `json:"o"`
	Marked    []bingo.Cell `json:"marked"`
	Bingo     bool         `json:"bingo"`
}

func NewBoard(playerNum int, sessionID int64, card *bingo.Card) *Board {
	return &Board{
		ID:        playerNum,
		SessionID: sessionID,
		CardID:    card.ID(),
		B:         card.Column(bingo.ColumnB),
		I:         card.Column(bingo.ColumnI),
		N:         card.Column(bingo.ColumnN),
		G:         card.Column(bingo.ColumnG),
		O:         card.Column(bingo.ColumnO),
		Marked:    card.Marked(),
		Bingo:     card.HasBingo(),
	}
}

func (that *Board) URI() string {
	return fmt.Sprintf("/bingo/sessions/%d/boards/%d", that.SessionID, that.ID)
}

// SyncMarks - copies mark state from the live card.
func (that *Board) SyncMarks(card *bingo.Card) {
	that.Marked = card.Marked()
	that.Bingo = card.HasBingo()
}
