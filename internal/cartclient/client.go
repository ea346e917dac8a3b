package cartclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"storefront/internal/domain/model"
)

// Item はカートAPIのワイヤ表現。サーバーはproductIdと数量だけを持つ
type Item struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

type cartPayload struct {
	Items []Item `json:"items"`
}

// Option はClientの設定
type Option func(*Client)

// WithHTTPClient は使うhttp.Clientを差し替える
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpc = h
		}
	}
}

// WithTokenProvider はリクエストごとにbearerトークンを供給する
func WithTokenProvider(fn func() string) Option {
	return func(c *Client) {
		if fn != nil {
			c.token = fn
		}
	}
}

// WithToken は固定トークン
func WithToken(token string) Option {
	return WithTokenProvider(func() string { return token })
}

// Client はカートAPIへの薄いHTTPクライアント。
// リトライはしない（失敗時の巻き戻しはstore側の責務）。
type Client struct {
	baseURL string
	httpc   *http.Client
	token   func() string
}

func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("cartclient: base URL is required")
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc: &http.Client{
			Timeout: 10 * time.Second,
		},
		token: func() string { return "" },
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// FetchCart は認証ユーザーの現在のカートを取得する。
// カートが無い場合もサーバーは空配列の200を返す
func (c *Client) FetchCart(ctx context.Context) ([]Item, error) {
	var out cartPayload
	if err := c.do(ctx, http.MethodGet, "/cart", nil, &out); err != nil {
		return nil, err
	}
	if out.Items == nil {
		out.Items = []Item{}
	}
	return out.Items, nil
}

// SyncCart は明細の全量を送って丸ごと差し替える（wholesale replace）
func (c *Client) SyncCart(ctx context.Context, items []Item) ([]Item, error) {
	if items == nil {
		items = []Item{}
	}

	var out cartPayload
	if err := c.do(ctx, http.MethodPut, "/cart", cartPayload{Items: items}, &out); err != nil {
		return nil, err
	}
	if out.Items == nil {
		out.Items = []Item{}
	}
	return out.Items, nil
}

// ClearCart はサーバー側のカートを空にする
func (c *Client) ClearCart(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/cart", nil, nil)
}

// FetchProduct は商品詳細を取得する（store側のproduct join用）
func (c *Client) FetchProduct(ctx context.Context, productID int64) (model.Product, error) {
	var out model.Product
	if err := c.do(ctx, http.MethodGet, "/products/"+strconv.FormatInt(productID, 10), nil, &out); err != nil {
		return model.Product{}, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("cartclient: marshal body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("cartclient: build request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("cartclient: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("cartclient: decode response: %w", err)
	}
	return nil
}

// {"error": msg} 形式のエラーボディを読んでAPIErrorにする
func decodeAPIError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err := json.Unmarshal(data, &body); err != nil || body.Error == "" {
		body.Error = http.StatusText(resp.StatusCode)
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    body.Error,
	}
}
