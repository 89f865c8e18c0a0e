package api

import (
	"encoding/json"

	"github.com/gin-gonic/gin"

	"github.com/quietharbor/harbormind/internal/feed"
	"github.com/quietharbor/harbormind/internal/models"
	"github.com/quietharbor/harbormind/internal/reaction"
)

// FeedAPI exposes the feed core over JSON-RPC
type FeedAPI struct {
	service    *feed.Service
	controller *reaction.Controller
}

// NewFeedAPI creates the feed API
func NewFeedAPI(service *feed.Service, controller *reaction.Controller) *FeedAPI {
	return &FeedAPI{service: service, controller: controller}
}

type filterParams struct {
	TimeWindow string   `json:"time_window"`
	LevelMin   *int     `json:"level_min"`
	LevelMax   *int     `json:"level_max"`
	Tags       []string `json:"tags"`
	Sort       string   `json:"sort"`
}

// toFilter converts wire params into a validated FeedFilter
func (p filterParams) toFilter() (feed.FeedFilter, error) {
	f := feed.FeedFilter{
		TimeWindow: feed.TimeWindow(p.TimeWindow),
		Tags:       p.Tags,
		Sort:       feed.SortKey(p.Sort),
	}
	if p.LevelMin != nil || p.LevelMax != nil {
		min, max := models.LevelMin, models.LevelMax
		if p.LevelMin != nil {
			min = *p.LevelMin
		}
		if p.LevelMax != nil {
			max = *p.LevelMax
		}
		levels, err := feed.NewLevelRange(min, max)
		if err != nil {
			return feed.FeedFilter{}, err
		}
		f.Levels = &levels
	}
	if err := f.Validate(); err != nil {
		return feed.FeedFilter{}, err
	}
	return f, nil
}

type pageParams struct {
	Filter   filterParams `json:"filter"`
	Page     int          `json:"page"`
	PageSize int          `json:"page_size"`
	StreamID string       `json:"stream_id"`
}

// GetPage handles feed.get_page
func (a *FeedAPI) GetPage(ctx *gin.Context, params json.RawMessage) (interface{}, error) {
	var p pageParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, NewError(ErrInvalidParams, "invalid parameters format")
	}
	if p.Page == 0 {
		p.Page = 1
	}
	if p.PageSize == 0 {
		p.PageSize = 20
	}

	filter, err := p.Filter.toFilter()
	if err != nil {
		return nil, NewError(ErrInvalidParams, err.Error())
	}

	return a.service.Page(ctx.Request.Context(), p.StreamID, filter, p.Page, p.PageSize)
}

type searchParams struct {
	Query    string `json:"query"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
	StreamID string `json:"stream_id"`
}

// Search handles feed.search
func (a *FeedAPI) Search(ctx *gin.Context, params json.RawMessage) (interface{}, error) {
	var p searchParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, NewError(ErrInvalidParams, "invalid parameters format")
	}
	if p.Page == 0 {
		p.Page = 1
	}
	if p.PageSize == 0 {
		p.PageSize = 20
	}

	return a.service.Search(ctx.Request.Context(), p.StreamID, p.Query, p.Page, p.PageSize)
}

// GetMetadata handles feed.get_metadata
func (a *FeedAPI) GetMetadata(ctx *gin.Context, params json.RawMessage) (interface{}, error) {
	return a.service.Metadata(ctx.Request.Context())
}

// InvalidateMetadata handles feed.invalidate_metadata
func (a *FeedAPI) InvalidateMetadata(ctx *gin.Context, params json.RawMessage) (interface{}, error) {
	a.service.InvalidateMetadata()
	return gin.H{"invalidated": true}, nil
}

type twinParams struct {
	EntryID string   `json:"entry_id"`
	Tags    []string `json:"tags"`
	Level   int      `json:"level"`
}

// FindTwins handles feed.find_twins. When tags are omitted the seed
// entry is loaded and its own tags and level are used.
func (a *FeedAPI) FindTwins(ctx *gin.Context, params json.RawMessage) (interface{}, error) {
	var p twinParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, NewError(ErrInvalidParams, "invalid parameters format")
	}

	if len(p.Tags) == 0 && p.EntryID != "" {
		seed, err := a.service.GetEntry(ctx.Request.Context(), p.EntryID)
		if err != nil {
			return nil, err
		}
		p.Tags = seed.Tags
		p.Level = seed.Level
	}

	twins, err := a.service.FindTwins(ctx.Request.Context(), p.EntryID, p.Tags, p.Level)
	if err != nil {
		return nil, err
	}
	return gin.H{"twins": twins}, nil
}

type entryParams struct {
	EntryID string `json:"entry_id"`
}

// GetEntry handles feed.get_entry
func (a *FeedAPI) GetEntry(ctx *gin.Context, params json.RawMessage) (interface{}, error) {
	var p entryParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, NewError(ErrInvalidParams, "invalid parameters format")
	}
	if p.EntryID == "" {
		return nil, NewError(ErrInvalidParams, "missing required parameter: entry_id")
	}
	return a.service.GetEntry(ctx.Request.Context(), p.EntryID)
}

type reactParams struct {
	EntryID string `json:"entry_id"`
	UserID  string `json:"user_id"`
	Type    string `json:"type"`
}

// React handles feed.react
func (a *FeedAPI) React(ctx *gin.Context, params json.RawMessage) (interface{}, error) {
	var p reactParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, NewError(ErrInvalidParams, "invalid parameters format")
	}
	if p.EntryID == "" {
		return nil, NewError(ErrInvalidParams, "missing required parameter: entry_id")
	}

	rt, err := models.ParseReactionType(p.Type)
	if err != nil {
		return nil, NewError(ErrInvalidParams, err.Error())
	}

	outcome, err := a.controller.Give(ctx.Request.Context(), p.EntryID, p.UserID, rt)
	if err != nil {
		return nil, err
	}
	return a.reactionResult(p.EntryID, p.UserID, outcome), nil
}

type confirmParams struct {
	EntryID string `json:"entry_id"`
	UserID  string `json:"user_id"`
}

// ConfirmRemoval handles feed.confirm_removal
func (a *FeedAPI) ConfirmRemoval(ctx *gin.Context, params json.RawMessage) (interface{}, error) {
	var p confirmParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, NewError(ErrInvalidParams, "invalid parameters format")
	}
	if p.EntryID == "" {
		return nil, NewError(ErrInvalidParams, "missing required parameter: entry_id")
	}

	outcome, err := a.controller.ConfirmRemoval(ctx.Request.Context(), p.EntryID, p.UserID)
	if err != nil {
		return nil, err
	}
	return a.reactionResult(p.EntryID, p.UserID, outcome), nil
}

func (a *FeedAPI) reactionResult(entryID, userID string, outcome reaction.Outcome) gin.H {
	return gin.H{
		"outcome":       outcome,
		"display_count": a.controller.DisplayCount(entryID),
		"current_type":  a.controller.CurrentType(entryID, userID),
	}
}
