package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/cardtrade/internal/domain"
	"github.com/mtlprog/cardtrade/internal/recalc"
)

// maxBodyBytes caps request bodies; a trade-in line is a few hundred bytes.
const maxBodyBytes = 1 << 20

var errBadRequest = errors.New("bad request")

// decodeJSON decodes the request body into v, rejecting unknown fields and trailing data.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", errBadRequest, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: unexpected data after JSON body", errBadRequest)
	}
	return nil
}

// rawText returns a JSON string or number as its text, so form inputs can send either.
func rawText(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if s == "null" {
		return ""
	}
	return strings.Trim(s, `"`)
}

type valuationRequest struct {
	Game        string          `json:"game"`
	MarketPrice decimal.Decimal `json:"marketPrice"`
}

type resolveRequest struct {
	Card      domain.CardRef `json:"card"`
	Condition string         `json:"condition"`
	Finish    domain.Finish  `json:"finish"`
}

type createTradeRequest struct {
	CustomerName string `json:"customerName"`
	Note         string `json:"note"`
}

type addItemRequest struct {
	Card      domain.CardRef  `json:"card"`
	Condition string          `json:"condition"`
	Finish    domain.Finish   `json:"finish"`
	Quantity  json.RawMessage `json:"quantity"`
}

type decisionRequest struct {
	Approver string `json:"approver"`
	Note     string `json:"note"`
}

// itemChangeRequest is one field edit from the POS form. Only the field matching Kind is read.
type itemChangeRequest struct {
	Kind        recalc.Kind        `json:"kind"`
	Condition   string             `json:"condition"`
	Finish      *domain.Finish     `json:"finish"`
	Flag        bool               `json:"flag"`
	Amount      json.RawMessage    `json:"amount"`
	PaymentType domain.PaymentType `json:"paymentType"`
	Quantity    json.RawMessage    `json:"quantity"`
}

// toChange converts the form edit into an engine change. Amounts accept local formats such
// as "12,50"; quantities are clamped rather than rejected.
func (req itemChangeRequest) toChange() (recalc.Change, error) {
	switch req.Kind {
	case recalc.KindCondition:
		cond, err := domain.ParseCondition(req.Condition)
		if err != nil {
			return recalc.Change{}, fmt.Errorf("%w: %v", errBadRequest, err)
		}
		return recalc.SetCondition(cond), nil
	case recalc.KindFinish:
		if req.Finish == nil {
			return recalc.Change{}, fmt.Errorf("%w: finish is required", errBadRequest)
		}
		return recalc.SetFinish(*req.Finish), nil
	case recalc.KindFirstEdition:
		return recalc.SetFirstEdition(req.Flag), nil
	case recalc.KindHolo:
		return recalc.SetHolo(req.Flag), nil
	case recalc.KindReverseHolo:
		return recalc.SetReverseHolo(req.Flag), nil
	case recalc.KindPaymentType:
		return recalc.SetPaymentType(req.PaymentType), nil
	case recalc.KindQuantity:
		return recalc.SetQuantity(domain.ClampQuantity(rawText(req.Quantity))), nil
	case recalc.KindRefresh:
		return recalc.Refresh(), nil
	case recalc.KindMarketPrice, recalc.KindCashValue, recalc.KindTradeValue:
		amount, err := domain.ParseAmount(rawText(req.Amount))
		if err != nil {
			return recalc.Change{}, fmt.Errorf("%w: %s: %v", errBadRequest, req.Kind, err)
		}
		switch req.Kind {
		case recalc.KindMarketPrice:
			return recalc.SetMarketPrice(amount), nil
		case recalc.KindCashValue:
			return recalc.SetCashValue(amount), nil
		default:
			return recalc.SetTradeValue(amount), nil
		}
	}
	return recalc.Change{}, fmt.Errorf("%w: unknown change kind %q", errBadRequest, req.Kind)
}

// normalizeCard trims and lowercases the card's game.
func normalizeCard(card domain.CardRef) domain.CardRef {
	card.Game = domain.NormalizeGame(string(card.Game))
	card.ProductID = strings.TrimSpace(card.ProductID)
	return card
}
