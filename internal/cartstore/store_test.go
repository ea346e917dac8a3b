package cartstore_test

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"storefront/internal/cartclient"
	"storefront/internal/cartstore"
	"storefront/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =====================
// Fakes
// =====================

// fakeAPI は失敗や遅延を注入できるAPIの偽物
type fakeAPI struct {
	mu         sync.Mutex
	syncCalls  [][]cartclient.Item
	clearCalls int

	fetchItems []cartclient.Item
	fetchErr   error
	syncErr    error
	clearErr   error

	syncDelay time.Duration

	//in-flightの最大同時数（直列化の検証用）
	inFlight    int32
	maxInFlight int32

	fetchGate chan struct{} //設定されていればFetchCartがここで待つ
	syncGate  chan struct{} //設定されていればSyncCartがここで待つ
}

func (f *fakeAPI) FetchCart(ctx context.Context) ([]cartclient.Item, error) {
	if f.fetchGate != nil {
		<-f.fetchGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	out := make([]cartclient.Item, len(f.fetchItems))
	copy(out, f.fetchItems)
	return out, nil
}

func (f *fakeAPI) SyncCart(ctx context.Context, items []cartclient.Item) ([]cartclient.Item, error) {
	if f.syncGate != nil {
		<-f.syncGate
	}
	n := atomic.AddInt32(&f.inFlight, 1)
	for {
		max := atomic.LoadInt32(&f.maxInFlight)
		if n <= max || atomic.CompareAndSwapInt32(&f.maxInFlight, max, n) {
			break
		}
	}
	if f.syncDelay > 0 {
		time.Sleep(f.syncDelay)
	}
	atomic.AddInt32(&f.inFlight, -1)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.syncErr != nil {
		return nil, f.syncErr
	}
	cp := make([]cartclient.Item, len(items))
	copy(cp, items)
	f.syncCalls = append(f.syncCalls, cp)
	return cp, nil
}

func (f *fakeAPI) ClearCart(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.clearErr != nil {
		return f.clearErr
	}
	f.clearCalls++
	return nil
}

func (f *fakeAPI) lastSync() ([]cartclient.Item, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.syncCalls) == 0 {
		return nil, false
	}
	return f.syncCalls[len(f.syncCalls)-1], true
}

// fakeProducts は固定の商品カタログ
type fakeProducts struct {
	byID map[int64]model.Product
}

func (f *fakeProducts) FetchProduct(ctx context.Context, productID int64) (model.Product, error) {
	p, ok := f.byID[productID]
	if !ok {
		return model.Product{}, &cartclient.APIError{StatusCode: http.StatusNotFound, Message: "not found"}
	}
	return p, nil
}

func product(id int64, price int64) model.Product {
	return model.Product{ID: id, Name: "P", Price: price, IsActive: true}
}

func newStore(api *fakeAPI, products *fakeProducts, opts ...cartstore.Option) *cartstore.Store {
	if products == nil {
		products = &fakeProducts{byID: map[int64]model.Product{}}
	}
	return cartstore.New(api, products, opts...)
}

// =====================
// Mutations
// =====================

func TestStore_AddItem_MergesDuplicates(t *testing.T) {
	api := &fakeAPI{}
	s := newStore(api, nil)

	p := product(1, 100)
	s.AddItem(p, 2)
	s.AddItem(p, 3)
	s.Wait()

	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, int64(1), items[0].Product.ID)
	assert.Equal(t, int64(5), items[0].Quantity)
	assert.Empty(t, s.LastError())

	//最終的にサーバーへ送られたのも畳み込み後の状態
	last, ok := api.lastSync()
	require.True(t, ok)
	assert.Equal(t, []cartclient.Item{{ProductID: 1, Quantity: 5}}, last)
}

func TestStore_UpdateQuantity_ZeroRemoves(t *testing.T) {
	api := &fakeAPI{}
	s := newStore(api, nil)

	s.AddItem(product(1, 100), 2)
	s.UpdateQuantity(1, 0)
	s.Wait()

	assert.Empty(t, s.Items())
}

func TestStore_RemoveItem_Missing_NoSync(t *testing.T) {
	api := &fakeAPI{}
	s := newStore(api, nil)

	s.RemoveItem(42)
	s.Wait()

	_, ok := api.lastSync()
	assert.False(t, ok, "no-op mutation must not hit the server")
}

func TestStore_MutationSequences_KeepInvariants(t *testing.T) {
	api := &fakeAPI{}
	s := newStore(api, nil)

	s.AddItem(product(1, 100), 1)
	s.AddItem(product(2, 50), 4)
	s.AddItem(product(1, 100), 2)
	s.UpdateQuantity(2, 1)
	s.UpdateQuantity(3, 5) //存在しないID：no-op
	s.RemoveItem(1)
	s.AddItem(product(1, 100), 1)
	s.UpdateQuantity(1, -5) //負数は削除扱い
	s.Wait()

	seen := map[int64]bool{}
	for _, e := range s.Items() {
		assert.False(t, seen[e.Product.ID], "duplicate productID %d", e.Product.ID)
		seen[e.Product.ID] = true
		assert.GreaterOrEqual(t, e.Quantity, int64(1))
	}

	require.Len(t, s.Items(), 1)
	assert.Equal(t, int64(2), s.Items()[0].Product.ID)
}

func TestStore_TotalAndItemCount(t *testing.T) {
	api := &fakeAPI{}
	s := newStore(api, nil)

	s.AddItem(product(1, 100), 2)
	s.AddItem(product(2, 30), 3)

	assert.Equal(t, int64(100*2+30*3), s.Total())
	assert.Equal(t, int64(5), s.ItemCount())

	//derived readは状態を変えない
	assert.Equal(t, s.Total(), s.Total())
	s.Wait()
}

// =====================
// Sync failure / revert
// =====================

func TestStore_SyncFailure_RevertsAndSetsLastError(t *testing.T) {
	api := &fakeAPI{syncErr: &cartclient.APIError{StatusCode: 500, Message: "boom"}}
	s := newStore(api, nil)

	s.AddItem(product(1, 100), 2)
	s.Wait()

	//確認済み状態（空）へ巻き戻る
	assert.Empty(t, s.Items())
	assert.Equal(t, "server error", s.LastError())

	//その後のLoad成功でlastErrorが消える
	api.mu.Lock()
	api.syncErr = nil
	api.fetchItems = []cartclient.Item{}
	api.mu.Unlock()

	require.NoError(t, s.Load(context.Background()))
	assert.Empty(t, s.LastError())
}

func TestStore_SyncFailure_RevertsToLastConfirmed(t *testing.T) {
	api := &fakeAPI{}
	s := newStore(api, nil)

	s.AddItem(product(1, 100), 2)
	s.Wait()
	require.Empty(t, s.LastError())

	api.mu.Lock()
	api.syncErr = &cartclient.APIError{StatusCode: 401, Message: "unauthorized"}
	api.mu.Unlock()

	s.AddItem(product(2, 50), 1)
	s.Wait()

	//直前にACKされた状態（P1のみ）へ戻る
	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, int64(1), items[0].Product.ID)
	assert.Equal(t, "not signed in", s.LastError())
}

func TestStore_ValidationFailure_Messages(t *testing.T) {
	api := &fakeAPI{syncErr: &cartclient.APIError{StatusCode: 400, Message: "invalid product"}}
	s := newStore(api, nil)

	s.AddItem(product(1, 100), 1)
	s.Wait()
	assert.Equal(t, "product no longer available", s.LastError())
}

// =====================
// Load / Reset
// =====================

func TestStore_Load_JoinsProductsAndDropsStale(t *testing.T) {
	api := &fakeAPI{fetchItems: []cartclient.Item{
		{ProductID: 1, Quantity: 2},
		{ProductID: 9, Quantity: 1}, //カタログから消えた商品
	}}
	products := &fakeProducts{byID: map[int64]model.Product{1: product(1, 100)}}
	s := cartstore.New(api, products)

	require.NoError(t, s.Load(context.Background()))

	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, int64(1), items[0].Product.ID)
	assert.Equal(t, int64(2), items[0].Quantity)
	assert.Equal(t, int64(200), s.Total())
}

func TestStore_Load_ReplacesLocalWholesale(t *testing.T) {
	api := &fakeAPI{fetchItems: []cartclient.Item{{ProductID: 2, Quantity: 1}}}
	products := &fakeProducts{byID: map[int64]model.Product{2: product(2, 30)}}
	s := cartstore.New(api, products)

	s.AddItem(product(1, 100), 3)
	s.Wait()

	require.NoError(t, s.Load(context.Background()))

	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, int64(2), items[0].Product.ID)
}

func TestStore_Reset_DiscardsInFlightLoad(t *testing.T) {
	gate := make(chan struct{})
	api := &fakeAPI{
		fetchItems: []cartclient.Item{{ProductID: 1, Quantity: 1}},
		fetchGate:  gate,
	}
	products := &fakeProducts{byID: map[int64]model.Product{1: product(1, 100)}}
	s := cartstore.New(api, products)

	done := make(chan error, 1)
	go func() { done <- s.Load(context.Background()) }()

	//fetchが返る前にidentityが変わる（ログアウト）
	time.Sleep(10 * time.Millisecond)
	s.Reset()
	close(gate)

	require.NoError(t, <-done)
	assert.Empty(t, s.Items(), "superseded load result must be discarded")
}

func TestStore_MutationWaitsForLoad(t *testing.T) {
	gate := make(chan struct{})
	api := &fakeAPI{
		fetchItems: []cartclient.Item{{ProductID: 1, Quantity: 1}},
		fetchGate:  gate,
	}
	products := &fakeProducts{byID: map[int64]model.Product{1: product(1, 100)}}
	s := cartstore.New(api, products)

	loadDone := make(chan error, 1)
	go func() { loadDone <- s.Load(context.Background()) }()
	time.Sleep(10 * time.Millisecond)

	added := make(chan struct{})
	go func() {
		s.AddItem(product(2, 50), 1) //ロード中は待たされる
		close(added)
	}()

	select {
	case <-added:
		t.Fatal("mutation must be suspended while a load is in flight")
	case <-time.After(30 * time.Millisecond):
	}

	close(gate)
	require.NoError(t, <-loadDone)
	<-added
	s.Wait()

	//ロード結果の上に変更が積まれる
	assert.Equal(t, int64(2), s.ItemCount())
}

// =====================
// Clear
// =====================

func TestStore_Clear_SendsServerClear(t *testing.T) {
	api := &fakeAPI{}
	s := newStore(api, nil)

	s.AddItem(product(1, 100), 2)
	s.Wait()

	s.Clear()
	s.Wait()

	assert.Empty(t, s.Items())
	api.mu.Lock()
	defer api.mu.Unlock()
	assert.Equal(t, 1, api.clearCalls)
}

// =====================
// Serialization
// =====================

func TestStore_SerializesSyncs(t *testing.T) {
	api := &fakeAPI{syncDelay: 2 * time.Millisecond}
	s := newStore(api, nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int64) {
			defer wg.Done()
			s.AddItem(product(n%5+1, 10), 1)
		}(int64(i))
	}
	wg.Wait()
	s.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&api.maxInFlight),
		"at most one sync request may be in flight")

	//最後に送られた状態＝最終ローカル状態
	last, ok := api.lastSync()
	require.True(t, ok)
	want := map[int64]int64{}
	for _, e := range s.Items() {
		want[e.Product.ID] = e.Quantity
	}
	got := map[int64]int64{}
	for _, it := range last {
		got[it.ProductID] = it.Quantity
	}
	assert.Equal(t, want, got)
	assert.Equal(t, int64(20), s.ItemCount())
}

// =====================
// Persistence
// =====================

func TestStore_SnapshotRestoredOnStartup(t *testing.T) {
	api := &fakeAPI{}
	snaps := cartstore.NewMemorySnapshotStore()

	s1 := newStore(api, nil, cartstore.WithSnapshots(snaps))
	s1.AddItem(product(1, 100), 2)
	s1.AddItem(product(2, 50), 1)
	s1.Wait()

	//別プロセス起動を模す
	s2 := newStore(&fakeAPI{}, nil, cartstore.WithSnapshots(snaps))

	assert.Equal(t, s1.Items(), s2.Items())
	assert.Equal(t, int64(250), s2.Total())
}

func TestStore_Reset_ClearsSnapshot(t *testing.T) {
	api := &fakeAPI{}
	snaps := cartstore.NewMemorySnapshotStore()

	s := newStore(api, nil, cartstore.WithSnapshots(snaps))
	s.AddItem(product(1, 100), 2)
	s.Wait()

	s.Reset()

	_, ok, err := snaps.Load()
	require.NoError(t, err)
	assert.False(t, ok, "snapshot must be cleared on logout")
	assert.Empty(t, s.Items())
	assert.Empty(t, s.LastError())
}

// in-flightの同期がある間はLoadが開始しないこと。
// 遅れて返ってきた同期ACKがconfirmedをロード結果より古い状態へ
// 巻き戻さないことを、後続の失敗rollbackで確認する
func TestStore_LoadWaitsForInFlightSync(t *testing.T) {
	api := &fakeAPI{
		syncGate:   make(chan struct{}),
		fetchItems: []cartclient.Item{{ProductID: 2, Quantity: 3}},
	}
	products := &fakeProducts{byID: map[int64]model.Product{2: product(2, 50)}}
	s := newStore(api, products)

	//同期はgateで止まったまま
	s.AddItem(product(1, 100), 1)

	loadDone := make(chan error, 1)
	go func() { loadDone <- s.Load(context.Background()) }()

	select {
	case err := <-loadDone:
		t.Fatalf("load settled while a sync was still in flight: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(api.syncGate)
	require.NoError(t, <-loadDone)

	//ロード結果がローカルの正
	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, int64(2), items[0].Product.ID)
	assert.Equal(t, int64(3), items[0].Quantity)

	//以降の同期失敗は、同期前の状態ではなくロード結果へ巻き戻る
	api.mu.Lock()
	api.syncErr = &cartclient.APIError{StatusCode: http.StatusInternalServerError, Message: "boom"}
	api.mu.Unlock()

	s.UpdateQuantity(2, 5)
	s.Wait()

	items = s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, int64(2), items[0].Product.ID)
	assert.Equal(t, int64(3), items[0].Quantity)
	assert.NotEmpty(t, s.LastError())
}
