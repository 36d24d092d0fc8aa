package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/d60-Lab/anonboard/internal/api/handler"
	"github.com/d60-Lab/anonboard/internal/chain"
	"github.com/d60-Lab/anonboard/internal/model"
	"github.com/d60-Lab/anonboard/internal/service"
)

// Client talks to a running anonboard server. It satisfies the workflow's
// service.PostSource and service.TipSink so the tip reconciliation loop can
// run on the tipping side of the wire, same as the original browser client.
type Client struct {
	base  string
	token chain.Token
	http  *http.Client
}

var _ service.PostSource = (*Client)(nil)
var _ service.TipSink = (*Client)(nil)

func New(base string, token chain.Token) *Client {
	return &Client{base: base, token: token, http: &http.Client{Timeout: 15 * time.Second}}
}

// FeedPage is one page of the feed as served by GET /posts.
type FeedPage struct {
	Posts      []handler.FeedPost `json:"posts"`
	NextCursor *string            `json:"nextCursor"`
}

func (c *Client) ListPosts(ctx context.Context, cursor string) (*FeedPage, error) {
	u := c.base + "/posts"
	if cursor != "" {
		u += "?cursor=" + url.QueryEscape(cursor)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	var page FeedPage
	if err := c.do(req, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) CreatePost(ctx context.Context, text, authorAddress string) (*handler.FeedPost, error) {
	body, err := json.Marshal(map[string]string{"text": text, "authorAddress": authorAddress})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/posts", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	var out struct {
		Post handler.FeedPost `json:"post"`
	}
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out.Post, nil
}

// GetByID fetches a post and maps the feed shape back onto the entity the
// workflow validates against.
func (c *Client) GetByID(ctx context.Context, id string) (*model.Post, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/posts/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	var out struct {
		Post handler.FeedPost `json:"post"`
	}
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	post := &model.Post{
		ID:         out.Post.ID,
		Text:       out.Post.Text,
		LikesCount: out.Post.Reactions.LikesCount,
		TipsCount:  out.Post.TipsCount,
	}
	ts, err := time.Parse(time.RFC3339, out.Post.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("malformed post timestamp %q: %w", out.Post.Timestamp, err)
	}
	post.CreatedAt = ts
	if eth := out.Post.Author.VerifiedAddresses.EthAddresses; len(eth) > 0 {
		addr := eth[0]
		post.AuthorAddress = &addr
	}
	micros, err := c.token.ParseTotal(out.Post.TotalTipsAmount)
	if err != nil {
		return nil, fmt.Errorf("malformed totalTipsAmount %q: %w", out.Post.TotalTipsAmount, err)
	}
	post.TotalTipsMicros = micros
	return post, nil
}

// RecordTip posts a confirmed tip to the reconciliation endpoint.
func (c *Client) RecordTip(ctx context.Context, id, amount, txHash string) error {
	body, err := json.Marshal(map[string]string{"amount": amount, "txHash": txHash})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/posts/"+url.PathEscape(id)+"/tip", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, nil)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return service.ErrPostNotFound
	}
	if resp.StatusCode != http.StatusOK {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		if e.Error != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, e.Error)
		}
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
