package core

import (
	"context"
	"time"
)

// User 是用户资料。Preferences / Settings 为开放字段，按 key 合并更新。
type User struct {
	ID          string         `json:"id"`
	Name        string         `json:"name,omitempty"`
	Email       string         `json:"email,omitempty"`
	Preferences map[string]any `json:"preferences,omitempty"`
	Settings    map[string]any `json:"settings,omitempty"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// RestaurantSnapshot 是收藏 / 浏览记录里保存的餐厅快照。
type RestaurantSnapshot struct {
	Name       string   `json:"name"`
	Cuisine    string   `json:"cuisine,omitempty"`
	Rating     float64  `json:"rating"`
	Image      string   `json:"image,omitempty"`
	Location   string   `json:"location,omitempty"`
	PriceLevel int      `json:"priceLevel"`
	Tags       []string `json:"tags,omitempty"`
}

// Favorite 是一条收藏。
type Favorite struct {
	ID           string             `json:"id"`
	RestaurantID string             `json:"restaurantId,omitempty"`
	DateAdded    time.Time          `json:"dateAdded"`
	Restaurant   RestaurantSnapshot `json:"restaurant"`
}

// HistoryEntry 是一条浏览记录。
type HistoryEntry struct {
	ID           string             `json:"id"`
	RestaurantID string             `json:"restaurantId,omitempty"`
	VisitedDate  time.Time          `json:"visitedDate"`
	ViewType     string             `json:"viewType"`
	Restaurant   RestaurantSnapshot `json:"restaurant"`
}

// UserDataRepository 是用户数据（资料 / 收藏 / 浏览历史）的仓库接口。
// 每个方法都以 userID 为作用域，不存在进程级共享状态。
type UserDataRepository interface {
	GetUser(ctx context.Context, userID string) (*User, error)
	UpdateUser(ctx context.Context, userID string, patch User) (*User, error)
	UpdatePreferences(ctx context.Context, userID string, prefs map[string]any) (*User, error)
	UpdateSettings(ctx context.Context, userID string, settings map[string]any) (*User, error)

	Favorites(ctx context.Context, userID string) ([]Favorite, error)
	AddFavorite(ctx context.Context, userID string, restaurant *Item) (*Favorite, error)
	RemoveFavorite(ctx context.Context, userID string, favoriteID string) error
	IsFavorite(ctx context.Context, userID string, restaurantName string) (bool, error)

	BrowseHistory(ctx context.Context, userID string) ([]HistoryEntry, error)
	AddBrowseHistory(ctx context.Context, userID string, restaurant *Item, viewType string) (*HistoryEntry, error)
	ClearBrowseHistory(ctx context.Context, userID string) error
}

// UserData 模块错误
var (
	ErrAlreadyFavorite  = NewDomainError(ModuleUserData, ErrorCodeConflict, "userdata: restaurant already in favorites")
	ErrUserIDRequired   = NewDomainError(ModuleUserData, ErrorCodeInvalidInput, "userdata: userId is required")
	ErrRestaurantNeeded = NewDomainError(ModuleUserData, ErrorCodeInvalidInput, "userdata: restaurant is required")
)
