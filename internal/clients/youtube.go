// Package clients 封装对外部协作方（YouTube Data API v3）的访问。
package clients

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ytpm/services-export/internal/services"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-kratos/kratos/v2/log"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// pageSize 是 YouTube Data API 列表调用允许的最大单页条数。
const pageSize = 50

const (
	defaultRequestsPerSecond = 8
	defaultMaxRetries        = 3
)

// ClientConfig 聚合客户端限速与重试参数；零值字段使用默认值。
type ClientConfig struct {
	RequestsPerSecond float64 // 客户端侧限速，避免触发提供方的瞬时限流
	MaxRetries        uint64  // 瞬时错误的最大重试次数
}

// YouTubeClient 基于用户 OAuth token 实现 services.PageClient。
// 每个实例绑定一个用户的 token，限速器随实例走。
type YouTubeClient struct {
	svc        *youtube.Service
	limiter    *rate.Limiter
	maxRetries uint64
	log        *log.Helper
}

var _ services.PageClient = (*YouTubeClient)(nil)

// NewYouTubeClient 用给定 access token 构造 YouTubeClient。
func NewYouTubeClient(ctx context.Context, accessToken string, cfg ClientConfig, logger log.Logger) (*YouTubeClient, error) {
	if accessToken == "" {
		return nil, errors.New("youtube client: access token is required")
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = defaultRequestsPerSecond
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaultMaxRetries
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
	svc, err := youtube.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}

	return &YouTubeClient{
		svc:        svc,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		maxRetries: cfg.MaxRetries,
		log:        log.NewHelper(logger),
	}, nil
}

// NewPageClientFactory 返回按用户 token 构造 PageClient 的工厂。
func NewPageClientFactory(cfg ClientConfig, logger log.Logger) services.PageClientFactory {
	return func(ctx context.Context, accessToken string) (services.PageClient, error) {
		return NewYouTubeClient(ctx, accessToken, cfg, logger)
	}
}

// ListPlaylists 返回用户的全部播放列表，并报告内部翻页次数供记账。
func (c *YouTubeClient) ListPlaylists(ctx context.Context) ([]services.PlaylistInfo, int64, error) {
	var (
		playlists []services.PlaylistInfo
		pages     int64
	)
	pageToken := ""
	for {
		var resp *youtube.PlaylistListResponse
		err := c.call(ctx, "playlists.list", func() error {
			var err error
			resp, err = c.svc.Playlists.List([]string{"snippet", "contentDetails"}).
				Mine(true).
				MaxResults(pageSize).
				PageToken(pageToken).
				Context(ctx).
				Do()
			return err
		})
		if err != nil {
			return nil, pages, err
		}
		pages++

		for _, item := range resp.Items {
			info := services.PlaylistInfo{ID: item.Id}
			if item.Snippet != nil {
				info.Title = item.Snippet.Title
			}
			if item.ContentDetails != nil {
				info.ItemCount = item.ContentDetails.ItemCount
			}
			playlists = append(playlists, info)
		}

		pageToken = resp.NextPageToken
		if pageToken == "" {
			return playlists, pages, nil
		}
	}
}

// ListSubscribedChannels 返回用户订阅的全部频道，并报告内部翻页次数供记账。
func (c *YouTubeClient) ListSubscribedChannels(ctx context.Context) ([]services.ChannelInfo, int64, error) {
	var (
		channels []services.ChannelInfo
		pages    int64
	)
	pageToken := ""
	for {
		var resp *youtube.SubscriptionListResponse
		err := c.call(ctx, "subscriptions.list", func() error {
			var err error
			resp, err = c.svc.Subscriptions.List([]string{"snippet"}).
				Mine(true).
				MaxResults(pageSize).
				PageToken(pageToken).
				Context(ctx).
				Do()
			return err
		})
		if err != nil {
			return nil, pages, err
		}
		pages++

		for _, item := range resp.Items {
			if item.Snippet == nil || item.Snippet.ResourceId == nil {
				continue
			}
			channels = append(channels, services.ChannelInfo{
				ChannelID: item.Snippet.ResourceId.ChannelId,
				Title:     item.Snippet.Title,
			})
		}

		pageToken = resp.NextPageToken
		if pageToken == "" {
			return channels, pages, nil
		}
	}
}

// ListPlaylistItemsPage 抓取播放列表的一页条目。
// 恰好执行一次 playlistItems.list；页非空时追加一次按 ID 批量的 videos.list
// 补齐语言、频道标题等条目本身不带的元数据。
func (c *YouTubeClient) ListPlaylistItemsPage(ctx context.Context, playlistID, pageToken string) (*services.VideoPage, error) {
	var resp *youtube.PlaylistItemListResponse
	err := c.call(ctx, "playlistItems.list", func() error {
		var err error
		resp, err = c.svc.PlaylistItems.List([]string{"snippet", "contentDetails"}).
			PlaylistId(playlistID).
			MaxResults(pageSize).
			PageToken(pageToken).
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		return nil, err
	}

	page := &services.VideoPage{NextPageToken: resp.NextPageToken}
	if resp.PageInfo != nil {
		page.TotalResults = resp.PageInfo.TotalResults
	}

	ids := make([]string, 0, len(resp.Items))
	videos := make([]services.PageVideo, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.ContentDetails == nil || item.ContentDetails.VideoId == "" {
			continue
		}
		v := services.PageVideo{VideoID: item.ContentDetails.VideoId}
		if item.Snippet != nil {
			v.Title = item.Snippet.Title
			if item.Snippet.Thumbnails != nil && item.Snippet.Thumbnails.Default != nil {
				v.ThumbnailURL = item.Snippet.Thumbnails.Default.Url
			}
			if t, perr := time.Parse(time.RFC3339, item.Snippet.PublishedAt); perr == nil {
				published := t
				v.PublishedAt = &published
			}
		}
		ids = append(ids, v.VideoID)
		videos = append(videos, v)
	}

	if len(ids) > 0 {
		if err := c.attachVideoDetails(ctx, ids, videos); err != nil {
			return nil, err
		}
	}

	page.Videos = videos
	return page, nil
}

// attachVideoDetails 用一次批量 videos.list 补齐条目元数据。
// 详情缺失的视频（已删除、已转私有）保留列表条目自带的字段。
func (c *YouTubeClient) attachVideoDetails(ctx context.Context, ids []string, videos []services.PageVideo) error {
	var resp *youtube.VideoListResponse
	err := c.call(ctx, "videos.list", func() error {
		var err error
		resp, err = c.svc.Videos.List([]string{"snippet"}).
			Id(ids...).
			MaxResults(pageSize).
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		return err
	}

	details := make(map[string]*youtube.VideoSnippet, len(resp.Items))
	for _, item := range resp.Items {
		if item.Snippet != nil {
			details[item.Id] = item.Snippet
		}
	}

	for i := range videos {
		sn, ok := details[videos[i].VideoID]
		if !ok {
			continue
		}
		videos[i].ChannelID = sn.ChannelId
		videos[i].ChannelTitle = sn.ChannelTitle
		videos[i].Language = sn.DefaultAudioLanguage
		if videos[i].Language == "" {
			videos[i].Language = sn.DefaultLanguage
		}
		if videos[i].PublishedAt == nil && sn.PublishedAt != "" {
			if t, perr := time.Parse(time.RFC3339, sn.PublishedAt); perr == nil {
				published := t
				videos[i].PublishedAt = &published
			}
		}
	}
	return nil
}

// call 统一执行限速与指数退避重试。永久性错误（4xx 业务错误、配额耗尽）
// 立即返回，不做重试。
func (c *YouTubeClient) call(ctx context.Context, name string, fn func() error) error {
	op := func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		if err := fn(); err != nil {
			if !retryable(err) {
				return backoff.Permanent(err)
			}
			c.log.WithContext(ctx).Warnf("youtube %s transient failure, retrying: %v", name, err)
			return err
		}
		return nil
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		return fmt.Errorf("youtube %s: %w", name, err)
	}
	return nil
}

// retryable 判断一次调用失败是否值得重试。
// 429 与 5xx 以及瞬时限流视为可重试；其余 4xx（含 403 quotaExceeded）为永久错误。
func retryable(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		if gerr.Code == 429 || gerr.Code >= 500 {
			return true
		}
		for _, item := range gerr.Errors {
			if item.Reason == "rateLimitExceeded" || item.Reason == "userRateLimitExceeded" {
				return true
			}
		}
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	// 其余错误按瞬时网络故障处理
	return true
}
