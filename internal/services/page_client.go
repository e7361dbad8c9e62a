package services

import (
	"context"
	"strings"
	"time"
)

// PlaylistInfo 描述用户的一个播放列表。
type PlaylistInfo struct {
	ID        string
	Title     string
	ItemCount int64
}

// ChannelInfo 描述用户订阅的一个频道。
type ChannelInfo struct {
	ChannelID string
	Title     string
}

// PageVideo 描述一页中的一条视频及其补充元数据。
type PageVideo struct {
	VideoID      string
	Title        string
	ChannelID    string
	ChannelTitle string
	Language     string
	ThumbnailURL string
	PublishedAt  *time.Time
}

// VideoPage 描述一次分页抓取的结果。
// NextPageToken 为空串表示该来源已抓完；TotalResults 为提供方报告的条目总数。
type VideoPage struct {
	Videos        []PageVideo
	NextPageToken string
	TotalResults  int64
}

// PageClient 抽象 YouTube Data API 的分页读取能力（外部协作方）。
//
// ListPlaylists / ListSubscribedChannels 返回完整列表及内部翻页次数，
// 供调用方按次数记账。ListPlaylistItemsPage 执行恰好一次分页列表调用，
// 页非空时追加一次按 ID 批量的视频详情调用（空页跳过详情调用）。
type PageClient interface {
	ListPlaylists(ctx context.Context) ([]PlaylistInfo, int64, error)
	ListSubscribedChannels(ctx context.Context) ([]ChannelInfo, int64, error)
	ListPlaylistItemsPage(ctx context.Context, playlistID, pageToken string) (*VideoPage, error)
}

// PageClientFactory 用给定用户的 access token 构造 PageClient。
type PageClientFactory func(ctx context.Context, accessToken string) (PageClient, error)

// UploadsPlaylistID 将频道 ID 转换为其 uploads 播放列表 ID：
// UC 前缀换成 UU，后缀不变。不符合该约定的 ID 原样返回（上游未校验畸形 ID）。
func UploadsPlaylistID(channelID string) string {
	if strings.HasPrefix(channelID, "UC") {
		return "UU" + channelID[2:]
	}
	return channelID
}
