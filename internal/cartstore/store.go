package cartstore

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"storefront/internal/cartclient"
	"storefront/internal/domain/model"
)

// API はstoreがサーバーと同期するために使う操作。
// *cartclient.Client がこれを満たす。テストでは偽物を注入する
type API interface {
	FetchCart(ctx context.Context) ([]cartclient.Item, error)
	SyncCart(ctx context.Context, items []cartclient.Item) ([]cartclient.Item, error)
	ClearCart(ctx context.Context) error
}

// ProductSource はLoad時のproduct join用。
// ワイヤ上のカートはproductIDと数量しか持たないので、表示用の商品情報をここで引く
type ProductSource interface {
	FetchProduct(ctx context.Context, productID int64) (model.Product, error)
}

// Entry はローカルカートの1行。商品スナップショットを丸ごと持つ
type Entry struct {
	Product  model.Product
	Quantity int64
}

type Option func(*Store)

// WithSnapshots はローカル永続化先を設定する
func WithSnapshots(snaps SnapshotStore) Option {
	return func(s *Store) {
		s.snaps = snaps
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

// WithSyncTimeout はバックグラウンド同期1回あたりのタイムアウト
func WithSyncTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.syncTimeout = d
		}
	}
}

// Store はクライアント側カートの状態コンテナ。
//
// すべての変更操作は楽観的に即ローカルへ反映し、非同期でサーバーへ同期する。
// 同期失敗時はサーバー確認済みのスナップショットへ巻き戻してlastErrorを立てる。
// 同期リクエストは1カートにつき常に最大1つだけin-flight。
//  同期中に積まれた変更はマージ済みローカル状態に畳み込まれ（last-write-wins）、
// 前のラウンドトリップがsettleしてから送られる
type Store struct {
	api      API
	products ProductSource
	snaps    SnapshotStore
	log      *slog.Logger

	syncTimeout time.Duration

	mu   sync.Mutex
	cond *sync.Cond

	items     []Entry
	confirmed []Entry //サーバーが最後にACKした状態

	dirty        bool //未送信のローカル変更がある
	pendingClear bool
	syncing      bool
	loading      bool

	// Reset（ログアウト等の identity 変更）で進む。
	// 古い世代のin-flight結果は捨てる
	gen int

	lastError string
}

func New(api API, products ProductSource, opts ...Option) *Store {
	s := &Store{
		api:         api,
		products:    products,
		log:         slog.Default(),
		syncTimeout: 10 * time.Second,
	}
	s.cond = sync.NewCond(&s.mu)

	for _, opt := range opts {
		opt(s)
	}

	//永続スナップショットがあれば起動時に1回だけ復元する
	if s.snaps != nil {
		if snap, ok, err := s.snaps.Load(); err == nil && ok {
			for _, it := range snap.Items {
				if it.Quantity < 1 {
					continue
				}
				s.items = append(s.items, Entry{Product: it.Product, Quantity: it.Quantity})
			}
		}
	}

	return s
}

// AddItem は商品を追加する。既にあれば数量を加算する。
// 失敗はlastErrorに出る（この呼び出しからは返さない）
func (s *Store) AddItem(p model.Product, quantity int64) {
	if quantity < 1 {
		quantity = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.waitWhileLoadingLocked()

	for i := range s.items {
		if s.items[i].Product.ID == p.ID {
			s.items[i].Quantity += quantity
			s.items[i].Product = p
			s.markDirtyLocked()
			return
		}
	}

	s.items = append(s.items, Entry{Product: p, Quantity: quantity})
	s.markDirtyLocked()
}

// RemoveItem は該当明細を取り除く。無ければ何もしない
func (s *Store) RemoveItem(productID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waitWhileLoadingLocked()

	if s.removeLocked(productID) {
		s.markDirtyLocked()
	}
}

// UpdateQuantity は数量を設定する。0以下はRemoveItem扱い
func (s *Store) UpdateQuantity(productID int64, quantity int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waitWhileLoadingLocked()

	if quantity <= 0 {
		if s.removeLocked(productID) {
			s.markDirtyLocked()
		}
		return
	}

	for i := range s.items {
		if s.items[i].Product.ID == productID {
			s.items[i].Quantity = quantity
			s.markDirtyLocked()
			return
		}
	}
}

// Clear はローカルを即空にし、サーバー側のクリアを要求する。
// チェックアウト成功後やログアウトで使う
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waitWhileLoadingLocked()

	s.items = nil
	s.dirty = false //クリア前に積んだ変更は意味を失う
	s.pendingClear = true
	s.startSyncLocked()
}

// Load はサーバーの正を取ってローカルを丸ごと置き換える（マウント時・ログイン時）。
// 実行中は他の変更操作を待たせる。Resetで世代が進んでいたら結果は捨てる。
// in-flightの同期がある間は開始しない（遅れて返ってきたACKがconfirmedを
// ロード結果より古い状態に巻き戻すのを防ぐ）
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	for s.loading || s.syncing {
		s.cond.Wait()
	}
	s.loading = true
	gen := s.gen
	s.mu.Unlock()

	wire, err := s.api.FetchCart(ctx)
	if err != nil {
		return s.finishLoad(gen, nil, err)
	}

	entries := make([]Entry, 0, len(wire))
	for _, it := range wire {
		p, perr := s.products.FetchProduct(ctx, it.ProductID)
		if perr != nil {
			//消えた商品への参照は落として続行する
			if cartclient.IsNotFound(perr) {
				continue
			}
			return s.finishLoad(gen, nil, perr)
		}
		entries = append(entries, Entry{Product: p, Quantity: it.Quantity})
	}

	return s.finishLoad(gen, entries, nil)
}

func (s *Store) finishLoad(gen int, entries []Entry, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loading = false
	s.cond.Broadcast()

	//ログアウト等で identity が変わっていたら結果を捨てる
	if gen != s.gen {
		return nil
	}

	if err != nil {
		s.lastError = messageFor(err)
		return err
	}

	s.items = entries
	s.confirmed = cloneEntries(entries)
	s.dirty = false
	s.lastError = ""
	s.persistLocked()
	return nil
}

// Reset はログアウト時の後始末。ローカル状態とスナップショットを消し、
// in-flightの結果を無効化する
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.gen++
	s.items = nil
	s.confirmed = nil
	s.dirty = false
	s.pendingClear = false
	s.lastError = ""
	s.cond.Broadcast()

	if s.snaps != nil {
		if err := s.snaps.Clear(); err != nil {
			s.log.Warn("cart snapshot clear failed", "err", err)
		}
	}
}

// Wait は同期・ロードがすべてsettleするまでブロックする。
// チェックアウト前やテストで使う
func (s *Store) Wait() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.loading || s.syncing {
		s.cond.Wait()
	}
}

// Total は price×quantity の合計。副作用なし
func (s *Store) Total() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var total int64 = 0
	for _, e := range s.items {
		total += e.Product.Price * e.Quantity
	}
	return total
}

// ItemCount は数量の合計
func (s *Store) ItemCount() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64 = 0
	for _, e := range s.items {
		n += e.Quantity
	}
	return n
}

// Items は現在のローカル明細のコピー
func (s *Store) Items() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneEntries(s.items)
}

func (s *Store) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}

func (s *Store) IsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

func (s *Store) IsSyncing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.syncing
}

// ---- internal ----

func (s *Store) waitWhileLoadingLocked() {
	for s.loading {
		s.cond.Wait()
	}
}

func (s *Store) removeLocked(productID int64) bool {
	for i := range s.items {
		if s.items[i].Product.ID == productID {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return true
		}
	}
	return false
}

func (s *Store) markDirtyLocked() {
	s.dirty = true
	s.startSyncLocked()
}

func (s *Store) startSyncLocked() {
	if s.syncing {
		// 既にworkerが居る。settle後に畳み込んだ状態を送ってくれる
		return
	}
	s.syncing = true
	go s.syncLoop()
}

// syncLoop は同期の単一worker。
// 1カートにつきin-flightは常に1つで、前のリクエストがsettleするまで次を送らない
func (s *Store) syncLoop() {
	for {
		s.mu.Lock()

		var (
			clear   bool
			payload []Entry
		)

		switch {
		case s.pendingClear:
			s.pendingClear = false
			clear = true
		case s.dirty:
			s.dirty = false
			payload = cloneEntries(s.items)
		default:
			//送るものが無くなった
			s.syncing = false
			s.cond.Broadcast()
			s.mu.Unlock()
			return
		}

		gen := s.gen
		s.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), s.syncTimeout)
		var err error
		if clear {
			err = s.api.ClearCart(ctx)
		} else {
			_, err = s.api.SyncCart(ctx, toWire(payload))
		}
		cancel()

		s.mu.Lock()

		if gen != s.gen {
			//Resetされた。結果は破棄してループ先頭から現世代の状態を見直す
			s.mu.Unlock()
			continue
		}

		if err != nil {
			//楽観更新の巻き戻し：サーバー確認済み状態へ戻す
			s.items = cloneEntries(s.confirmed)
			s.dirty = false
			s.pendingClear = false
			s.lastError = messageFor(err)
			s.syncing = false
			s.cond.Broadcast()
			s.persistLocked()
			s.mu.Unlock()
			s.log.Warn("cart sync failed", "err", err)
			return
		}

		if clear {
			s.confirmed = nil
		} else {
			s.confirmed = payload
		}
		s.lastError = ""
		s.persistLocked()
		s.mu.Unlock()
	}
}

func (s *Store) persistLocked() {
	if s.snaps == nil {
		return
	}

	snap := Snapshot{Items: make([]SnapshotItem, 0, len(s.items))}
	for _, e := range s.items {
		snap.Items = append(snap.Items, SnapshotItem{Product: e.Product, Quantity: e.Quantity})
	}

	if err := s.snaps.Save(snap); err != nil {
		s.log.Warn("cart snapshot save failed", "err", err)
	}
}

// エラー分類 → ユーザー向けメッセージ
func messageFor(err error) string {
	switch {
	case cartclient.IsUnauthenticated(err):
		return "not signed in"
	case cartclient.IsValidation(err):
		if ae, ok := cartclient.AsAPIError(err); ok && strings.Contains(ae.Message, "product") {
			return "product no longer available"
		}
		return "invalid cart update"
	case cartclient.IsNotFound(err):
		return "not found"
	case cartclient.IsServer(err):
		return "server error"
	default:
		return "network error"
	}
}

func toWire(entries []Entry) []cartclient.Item {
	items := make([]cartclient.Item, 0, len(entries))
	for _, e := range entries {
		items = append(items, cartclient.Item{
			ProductID: e.Product.ID,
			Quantity:  e.Quantity,
		})
	}
	return items
}

func cloneEntries(entries []Entry) []Entry {
	if entries == nil {
		return nil
	}
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}
