package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"trivia-service/internal/domain"
)

// BankRepository loads question-bank content (from cache/backing store).
type BankRepository interface {
	GetBank(ctx context.Context, bankID string) (domain.QuestionBank, error)
}

// BankHandler serves question banks read-only to the host UI. The game
// core never touches them; a question enters play only through the
// host's selection message.
type BankHandler struct {
	banks BankRepository
}

func NewBankHandler(banks BankRepository) *BankHandler {
	return &BankHandler{banks: banks}
}

func (h *BankHandler) ServeBank(w http.ResponseWriter, r *http.Request) {
	bankID := r.PathValue("id")
	if bankID == "" {
		http.Error(w, "missing bank id", http.StatusBadRequest)
		return
	}

	bank, err := h.banks.GetBank(r.Context(), bankID)
	switch {
	case errors.Is(err, domain.ErrBankNotFound):
		http.Error(w, "bank not found", http.StatusNotFound)
		return
	case err != nil:
		log.Printf("load bank %s: %v", bankID, err)
		http.Error(w, "failed to load bank", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(bank); err != nil {
		log.Printf("encode bank %s: %v", bankID, err)
	}
}
