package handler

import (
	"time"

	"github.com/d60-Lab/anonboard/internal/chain"
	"github.com/d60-Lab/anonboard/internal/model"
)

const zeroAddress = "0x0000000000000000000000000000000000000000"

// FeedAuthor 由地址派生的展示身份；无地址时为固定匿名身份
type FeedAuthor struct {
	Name              string            `json:"name"`
	DisplayName       string            `json:"display_name"`
	Username          string            `json:"username"`
	PfpURL            string            `json:"pfp_url"`
	PowerBadge        bool              `json:"power_badge"`
	CustodyAddress    string            `json:"custody_address"`
	VerifiedAddresses VerifiedAddresses `json:"verified_addresses"`
}

type VerifiedAddresses struct {
	EthAddresses []string `json:"eth_addresses"`
	SolAddresses []string `json:"sol_addresses"`
}

type FeedEmbed struct {
	Metadata struct {
		ContentType string `json:"content_type"`
	} `json:"metadata"`
	URL string `json:"url"`
}

type FeedReactions struct {
	LikesCount   int64 `json:"likes_count"`
	RecastsCount int64 `json:"recasts_count"`
}

type FeedReplies struct {
	Count int64 `json:"count"`
}

// FeedPost 对外展示的帖子结构
type FeedPost struct {
	ID              string        `json:"id"`
	Text            string        `json:"text"`
	Timestamp       string        `json:"timestamp"`
	Author          FeedAuthor    `json:"author"`
	Embeds          []FeedEmbed   `json:"embeds"`
	Reactions       FeedReactions `json:"reactions"`
	Replies         FeedReplies   `json:"replies"`
	TipsCount       int64         `json:"tipsCount"`
	TotalTipsAmount string        `json:"totalTipsAmount"`
}

func shapeAuthor(addr *string) FeedAuthor {
	if addr == nil {
		return FeedAuthor{
			Name:              "Anonymous",
			DisplayName:       "Anonymous",
			Username:          "anonymous",
			CustodyAddress:    zeroAddress,
			VerifiedAddresses: VerifiedAddresses{EthAddresses: []string{}, SolAddresses: []string{}},
		}
	}
	a := *addr
	short := a[:6] + "..." + a[len(a)-4:]
	return FeedAuthor{
		Name:              short,
		DisplayName:       short,
		Username:          "user_" + a[2:8],
		CustodyAddress:    a,
		VerifiedAddresses: VerifiedAddresses{EthAddresses: []string{a}, SolAddresses: []string{}},
	}
}

func shapePost(p *model.Post, token chain.Token) FeedPost {
	return FeedPost{
		ID:              p.ID,
		Text:            p.Text,
		Timestamp:       p.CreatedAt.UTC().Format(time.RFC3339),
		Author:          shapeAuthor(p.AuthorAddress),
		Embeds:          []FeedEmbed{},
		Reactions:       FeedReactions{LikesCount: p.LikesCount},
		Replies:         FeedReplies{},
		TipsCount:       p.TipsCount,
		TotalTipsAmount: token.FormatAmount(p.TotalTipsMicros),
	}
}

func shapePosts(posts []*model.Post, token chain.Token) []FeedPost {
	out := make([]FeedPost, 0, len(posts))
	for _, p := range posts {
		out = append(out, shapePost(p, token))
	}
	return out
}
