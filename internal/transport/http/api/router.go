package apihttp

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"botledger/internal/ledger"
	"botledger/internal/logger"
	"botledger/internal/processor"
	"botledger/internal/store"
)

const (
	maxBodyBytes   = 1 << 20
	defaultHistory = 50
	maxHistory     = 500
)

// Router 暴露账本相关接口。
type Router struct {
	ledger  Ledger
	bots    BotLister
	schemas *schemas
}

func newRouter(l Ledger, bots BotLister, s *schemas) *Router {
	return &Router{ledger: l, bots: bots, schemas: s}
}

// Register 将路由挂载到给定分组下。
func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	group.POST("/transactions", r.handleSubmit)
	group.GET("/bots/:authority", r.handleBot)
	group.GET("/bots/:authority/transactions", r.handleHistory)
	group.GET("/accounts/:address", r.handleAccount)
	group.POST("/airdrop", r.handleAirdrop)
	if r.bots != nil {
		group.GET("/bots", r.handleListBots)
	}
}

type airdropRequest struct {
	Address  ledger.PublicKey `json:"address"`
	Lamports uint64           `json:"lamports,omitempty"`
	SOL      string           `json:"sol,omitempty"`
}

// AccountView is the JSON shape of GET /accounts/:address. Bot is filled
// when the account holds a bot record.
type AccountView struct {
	store.Account
	SOL string          `json:"sol"`
	Bot *ledger.BotView `json:"bot,omitempty"`
}

func (r *Router) readBody(c *gin.Context) ([]byte, bool) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "read body: " + err.Error()})
		return nil, false
	}
	if len(raw) > maxBodyBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "body too large"})
		return nil, false
	}
	return raw, true
}

func (r *Router) handleSubmit(c *gin.Context) {
	raw, ok := r.readBody(c)
	if !ok {
		return
	}
	if err := validateJSON(r.schemas.transaction, raw); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var tx ledger.Transaction
	if err := json.Unmarshal(raw, &tx); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	receipt, err := r.ledger.Submit(c.Request.Context(), &tx)
	if err != nil {
		var body errorBody
		if receipt.Slot > 0 {
			body = newErrorBody(err, &receipt)
		} else {
			body = newErrorBody(err, nil)
		}
		logger.Debugf("[api] submit %s ip=%s err=%v", tx.Instruction, c.ClientIP(), err)
		c.JSON(statusFor(err), body)
		return
	}
	c.JSON(http.StatusOK, receipt)
}

func (r *Router) handleBot(c *gin.Context) {
	authority, ok := pathKey(c, "authority")
	if !ok {
		return
	}
	addr, rec, err := r.ledger.Bot(c.Request.Context(), authority)
	if err != nil {
		c.JSON(statusFor(err), newErrorBody(err, nil))
		return
	}
	c.JSON(http.StatusOK, ledger.NewBotView(addr, rec))
}

func (r *Router) handleHistory(c *gin.Context) {
	authority, ok := pathKey(c, "authority")
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultHistory)))
	if limit <= 0 {
		limit = defaultHistory
	}
	if limit > maxHistory {
		limit = maxHistory
	}
	entries, err := r.ledger.History(c.Request.Context(), authority, limit)
	if err != nil {
		logger.Errorf("[api] history failed ip=%s authority=%s err=%v", c.ClientIP(), authority, err)
		c.JSON(statusFor(err), newErrorBody(err, nil))
		return
	}
	c.JSON(http.StatusOK, gin.H{"authority": authority, "transactions": entries, "count": len(entries)})
}

func (r *Router) handleAccount(c *gin.Context) {
	addr, ok := pathKey(c, "address")
	if !ok {
		return
	}
	acct, err := r.ledger.Account(c.Request.Context(), addr)
	if err != nil {
		c.JSON(statusFor(err), newErrorBody(err, nil))
		return
	}
	view := AccountView{Account: *acct, SOL: ledger.FormatSOL(acct.Lamports)}
	if acct.Owner == r.ledger.ProgramID() {
		if rec, err := ledger.DecodeBotRecord(acct.Data); err == nil {
			bv := ledger.NewBotView(addr, rec)
			view.Bot = &bv
		}
	}
	c.JSON(http.StatusOK, view)
}

func (r *Router) handleAirdrop(c *gin.Context) {
	raw, ok := r.readBody(c)
	if !ok {
		return
	}
	if err := validateJSON(r.schemas.airdrop, raw); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var req airdropRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	lamports := req.Lamports
	if strings.TrimSpace(req.SOL) != "" {
		v, err := ledger.ParseSOL(req.SOL)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		lamports = v
	}
	if lamports == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "airdrop amount must be positive"})
		return
	}
	receipt, err := r.ledger.Airdrop(c.Request.Context(), req.Address, lamports)
	if err != nil {
		if errors.Is(err, processor.ErrAirdropDisabled) {
			logger.Warnf("[api] airdrop rejected ip=%s: disabled", c.ClientIP())
		}
		c.JSON(statusFor(err), newErrorBody(err, nil))
		return
	}
	c.JSON(http.StatusOK, receipt)
}

func (r *Router) handleListBots(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	views, err := r.bots.BotViews(c.Request.Context(), limit)
	if err != nil {
		logger.Errorf("[api] list bots failed ip=%s err=%v", c.ClientIP(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"bots": views, "count": len(views)})
}

func pathKey(c *gin.Context, name string) (ledger.PublicKey, bool) {
	k, err := ledger.PublicKeyFromBase58(strings.TrimSpace(c.Param(name)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name + ": " + err.Error()})
		return ledger.PublicKey{}, false
	}
	return k, true
}
