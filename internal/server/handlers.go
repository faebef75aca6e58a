package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"swapdesk/conversion"
	"swapdesk/internal/quotes"
	"swapdesk/models"
	"swapdesk/ranking"
)

// amountParam accepts an amount as a JSON string or number and keeps the raw
// text so validation sees exactly what the client sent.
type amountParam string

func (a *amountParam) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = amountParam(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*a = amountParam(n.String())
	return nil
}

type swapBody struct {
	From   *string      `json:"from"`
	To     *string      `json:"to"`
	Amount *amountParam `json:"amount"`
}

type pricesResponse struct {
	quotes.Status
	Prices map[string]decimal.Decimal `json:"prices,omitempty"`
}

type formResponse struct {
	conversion.Quote
	Assets []string `json:"assets"`
}

type swapResponse struct {
	Request models.SwapRequest  `json:"request"`
	Session conversion.Snapshot `json:"session"`
}

func errorBody(err error) gin.H {
	body := gin.H{"error": err.Error()}
	var verr *conversion.ValidationError
	if errors.As(err, &verr) {
		body["field"] = verr.Field
	}
	return body
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"prices": s.deps.Quotes.Status(),
		"swap":   s.deps.Session.State(),
	})
}

// handlePrices serves the current book whenever there is one, including
// during a refresh. Without a book it answers 202 while the first load runs
// and 503 once a fetch has failed.
func (s *Server) handlePrices(c *gin.Context) {
	status := s.deps.Quotes.Status()
	book := s.deps.Quotes.Book()
	switch {
	case book != nil:
		c.JSON(http.StatusOK, pricesResponse{Status: status, Prices: book.Prices()})
	case status.State == quotes.StateUnavailable:
		c.JSON(http.StatusServiceUnavailable, pricesResponse{Status: status})
	default:
		c.JSON(http.StatusAccepted, pricesResponse{Status: status})
	}
}

// handleReload fetches under the server context, so a client that hangs up
// does not abandon the load.
func (s *Server) handleReload(c *gin.Context) {
	err := s.deps.Quotes.Load(s.baseCtx)
	switch {
	case errors.Is(err, quotes.ErrLoadInProgress):
		c.JSON(http.StatusConflict, errorBody(err))
	case err != nil:
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "prices": s.deps.Quotes.Status()})
	default:
		c.JSON(http.StatusOK, s.deps.Quotes.Status())
	}
}

// handleQuote prices an ad hoc pair without touching the form. Missing
// parameters fall back to the form's selection.
func (s *Server) handleQuote(c *gin.Context) {
	book := s.deps.Quotes.Book()
	if book == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "prices unavailable", "prices": s.deps.Quotes.Status()})
		return
	}

	source, dest, amount := s.deps.Form.Selection()
	if v, ok := c.GetQuery("from"); ok {
		source = v
	}
	if v, ok := c.GetQuery("to"); ok {
		dest = v
	}
	if v, ok := c.GetQuery("amount"); ok {
		amount = v
	}

	rate := conversion.ComputeRate(book, source, dest)
	output, _ := conversion.ComputeOutput(amount, rate)
	c.JSON(http.StatusOK, conversion.Quote{
		Source:      source,
		Dest:        dest,
		Amount:      amount,
		Rate:        rate,
		Output:      output,
		AmountValid: conversion.AmountValid(amount),
		State:       s.deps.Session.State(),
	})
}

func (s *Server) formView() formResponse {
	book := s.deps.Quotes.Book()
	return formResponse{Quote: s.deps.Form.Quote(book), Assets: book.Assets()}
}

func (s *Server) handleForm(c *gin.Context) {
	c.JSON(http.StatusOK, s.formView())
}

func (s *Server) handleUpdateForm(c *gin.Context) {
	body, ok := bindSwapBody(c)
	if !ok {
		return
	}
	if body.From != nil {
		s.deps.Form.SetSource(*body.From)
	}
	if body.To != nil {
		s.deps.Form.SetDestination(*body.To)
	}
	if body.Amount != nil {
		s.deps.Form.SetAmount(string(*body.Amount))
	}
	c.JSON(http.StatusOK, s.formView())
}

func (s *Server) handleFlip(c *gin.Context) {
	s.deps.Form.SwapDirection()
	c.JSON(http.StatusOK, s.formView())
}

func (s *Server) handleFormSubmit(c *gin.Context) {
	book := s.deps.Quotes.Book()
	if book == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "prices unavailable", "prices": s.deps.Quotes.Status()})
		return
	}
	req, err := s.deps.Form.Submit(s.baseCtx, book)
	s.respondSubmit(c, req, err)
}

// handleSwap submits the body's selection. Fields left out are taken from
// the form.
func (s *Server) handleSwap(c *gin.Context) {
	book := s.deps.Quotes.Book()
	if book == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "prices unavailable", "prices": s.deps.Quotes.Status()})
		return
	}

	body, ok := bindSwapBody(c)
	if !ok {
		return
	}
	source, dest, amount := s.deps.Form.Selection()
	if body.From != nil {
		source = *body.From
	}
	if body.To != nil {
		dest = *body.To
	}
	if body.Amount != nil {
		amount = string(*body.Amount)
	}

	req, err := s.deps.Session.Submit(s.baseCtx, book, source, dest, amount)
	s.respondSubmit(c, req, err)
}

// bindSwapBody decodes an optional swapBody. An empty body is allowed.
func bindSwapBody(c *gin.Context) (swapBody, bool) {
	var body swapBody
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, errorBody(err))
		return body, false
	}
	return body, true
}

func (s *Server) respondSubmit(c *gin.Context, req models.SwapRequest, err error) {
	switch {
	case errors.Is(err, conversion.ErrBusy):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "session": s.deps.Session.Snapshot()})
	case err != nil:
		c.JSON(http.StatusUnprocessableEntity, errorBody(err))
	default:
		c.JSON(http.StatusAccepted, swapResponse{Request: req, Session: s.deps.Session.Snapshot()})
	}
}

func (s *Server) handleSwapStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.deps.Session.Snapshot())
}

func (s *Server) handleAcknowledge(c *gin.Context) {
	if err := s.deps.Session.Acknowledge(); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "session": s.deps.Session.Snapshot()})
		return
	}
	c.JSON(http.StatusOK, s.deps.Session.Snapshot())
}

func (s *Server) handleCancel(c *gin.Context) {
	if err := s.deps.Session.Cancel(); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "session": s.deps.Session.Snapshot()})
		return
	}
	c.JSON(http.StatusOK, s.deps.Session.Snapshot())
}

func (s *Server) handleBalances(c *gin.Context) {
	if s.deps.Wallet == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no balance source configured"})
		return
	}
	balances, err := s.deps.Wallet.Balances(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, errorBody(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"balances": ranking.Rank(balances, s.deps.Quotes.Book()),
		"prices":   s.deps.Quotes.Status(),
	})
}

// handleRankBalances ranks a caller supplied list against the current book.
func (s *Server) handleRankBalances(c *gin.Context) {
	var balances []models.Balance
	if err := c.ShouldBindJSON(&balances); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"balances": ranking.Rank(balances, s.deps.Quotes.Book()),
		"prices":   s.deps.Quotes.Status(),
	})
}

func (s *Server) handleWebsocket(c *gin.Context) {
	snap := s.deps.Session.Snapshot()
	status := s.deps.Quotes.Status()
	err := s.hub.ServeWS(c.Writer, c.Request,
		event{Type: "prices", Prices: &status},
		event{Type: "swap", Swap: &snap},
	)
	if err != nil {
		s.log.WithComponent("server").WithError(err).Warn("websocket upgrade failed")
	}
}

func (s *Server) handleRecentMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, s.metricStore.last(limitParam(c)))
}

func (s *Server) handleRecentLogs(c *gin.Context) {
	c.JSON(http.StatusOK, s.logStore.last(limitParam(c)))
}

func limitParam(c *gin.Context) int {
	n, err := strconv.Atoi(c.Query("limit"))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
