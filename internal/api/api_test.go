package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/rewear/internal/auth"
	"github.com/erazemk/rewear/internal/db"
	"github.com/erazemk/rewear/internal/model"
	"github.com/erazemk/rewear/internal/store"
	"github.com/erazemk/rewear/internal/swap"
)

const testJWTSecret = "test-secret"

type testServer struct {
	*httptest.Server
	t  *testing.T
	db *sql.DB
}

func setupTestServer(t *testing.T, moderation bool, limiter *RateLimiter) *testServer {
	t.Helper()
	database := db.NewTestDB(t)
	router := NewRouter(Options{
		DB:          database,
		JWTSecret:   testJWTSecret,
		Swaps:       swap.NewService(database, nil),
		Moderation:  moderation,
		AuthLimiter: limiter,
	})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return &testServer{Server: server, t: t, db: database}
}

// do sends a JSON request and decodes the JSON response into out, if given.
func (s *testServer) do(method, path, token string, body, out any) int {
	s.t.Helper()

	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, s.URL+path, reader)
	require.NoError(s.t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return s.send(req, out)
}

func (s *testServer) send(req *http.Request, out any) int {
	s.t.Helper()
	resp, err := http.DefaultClient.Do(req)
	require.NoError(s.t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(s.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

// register creates an account through the API and returns its token.
func (s *testServer) register(name, email string) (string, *model.User) {
	s.t.Helper()
	var resp authResponse
	status := s.do("POST", "/api/auth/register", "", map[string]string{
		"name": name, "email": email, "password": "password123",
	}, &resp)
	require.Equal(s.t, http.StatusCreated, status)
	require.NotEmpty(s.t, resp.Token)
	return resp.Token, resp.User
}

// admin creates an admin account directly and returns a token for it.
func (s *testServer) admin() (string, *model.User) {
	s.t.Helper()
	hash, err := auth.HashPassword("adminpass")
	require.NoError(s.t, err)
	u, err := store.CreateUser(context.Background(), s.db, "Admin", "admin@example.com", hash, model.RoleAdmin)
	require.NoError(s.t, err)
	token, err := auth.GenerateToken(testJWTSecret, u.ID, u.Email, u.Role)
	require.NoError(s.t, err)
	return token, u
}

func pngImage(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for x := 0; x < 16; x++ {
		for y := 0; y < 16; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 16), G: 80, B: 160, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// itemForm builds a multipart listing body with the given fields and images.
func itemForm(t *testing.T, fields map[string]string, images [][]byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for i, data := range images {
		fw, err := mw.CreateFormFile("images", "photo"+strconv.Itoa(i)+".png")
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func listingFields(title string, points int) map[string]string {
	return map[string]string{
		"title":       title,
		"description": "Barely worn, no stains or tears",
		"category":    "outerwear",
		"type":        "casual",
		"size":        "M",
		"condition":   "like-new",
		"tags":        "wool, winter",
		"pointsValue": strconv.Itoa(points),
	}
}

func (s *testServer) upload(method, path, token string, fields map[string]string, images [][]byte, out any) int {
	s.t.Helper()
	body, contentType := itemForm(s.t, fields, images)
	req, err := http.NewRequest(method, s.URL+path, body)
	require.NoError(s.t, err)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)
	return s.send(req, out)
}

func (s *testServer) listItem(token, title string, points int) model.Item {
	s.t.Helper()
	var item model.Item
	status := s.upload("POST", "/api/items", token, listingFields(title, points), [][]byte{pngImage(s.t)}, &item)
	require.Equal(s.t, http.StatusCreated, status)
	return item
}

func (s *testServer) balance(token string) int {
	s.t.Helper()
	var u model.User
	require.Equal(s.t, http.StatusOK, s.do("GET", "/api/auth/profile", token, nil, &u))
	return u.Points
}

func TestLoginEndpoint(t *testing.T) {
	srv := setupTestServer(t, false, nil)
	srv.register("Alice", "alice@example.com")

	var resp authResponse
	status := srv.do("POST", "/api/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "password123",
	}, &resp)
	require.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, model.StartingPoints, resp.User.Points)

	var errResp map[string]string
	status = srv.do("POST", "/api/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "wrong-password",
	}, &errResp)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "invalid credentials", errResp["message"])
}

func TestRegisterValidation(t *testing.T) {
	srv := setupTestServer(t, false, nil)
	srv.register("Alice", "alice@example.com")

	tests := []struct {
		name   string
		body   map[string]string
		status int
	}{
		{"duplicate email", map[string]string{"name": "Al", "email": "ALICE@example.com", "password": "password123"}, http.StatusConflict},
		{"bad email", map[string]string{"name": "Bob", "email": "not-an-email", "password": "password123"}, http.StatusBadRequest},
		{"short password", map[string]string{"name": "Bob", "email": "bob@example.com", "password": "short"}, http.StatusBadRequest},
		{"missing name", map[string]string{"email": "bob@example.com", "password": "password123"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp map[string]string
			assert.Equal(t, tt.status, srv.do("POST", "/api/auth/register", "", tt.body, &resp))
			assert.NotEmpty(t, resp["message"])
		})
	}
}

func TestUnauthenticatedAccess(t *testing.T) {
	srv := setupTestServer(t, false, nil)

	// Browsing is public.
	assert.Equal(t, http.StatusOK, srv.do("GET", "/api/items", "", nil, nil))

	for _, path := range []string{"/api/auth/profile", "/api/items/mine", "/api/swaps/my-requests", "/api/admin/stats"} {
		assert.Equal(t, http.StatusUnauthorized, srv.do("GET", path, "", nil, nil), path)
	}
	assert.Equal(t, http.StatusUnauthorized, srv.do("GET", "/api/auth/profile", "garbage", nil, nil))
}

func TestItemsAPIFlow(t *testing.T) {
	srv := setupTestServer(t, false, nil)
	alice, aliceUser := srv.register("Alice", "alice@example.com")

	item := srv.listItem(alice, "Wool coat", 50)
	assert.Equal(t, model.ItemStatusAvailable, item.Status)
	assert.Equal(t, []string{"wool", "winter"}, item.Tags)
	require.Len(t, item.Images, 1)

	// The stored image is served re-encoded.
	resp, err := http.Get(srv.URL + "/api/images/" + item.Images[0])
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/jpeg", resp.Header.Get("Content-Type"))

	var got model.Item
	require.Equal(t, http.StatusOK, srv.do("GET", "/api/items/"+item.ID, "", nil, &got))
	require.NotNil(t, got.Owner)
	assert.Equal(t, aliceUser.ID, got.Owner.ID)

	var page browseResponse
	require.Equal(t, http.StatusOK, srv.do("GET", "/api/items?category=outerwear&search=wool", "", nil, &page))
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, 1, page.TotalPages)
	require.Len(t, page.Items, 1)

	require.Equal(t, http.StatusOK, srv.do("GET", "/api/items?category=shoes", "", nil, &page))
	assert.Equal(t, 0, page.Total)
	assert.Empty(t, page.Items)

	assert.Equal(t, http.StatusBadRequest, srv.do("GET", "/api/items?size=huge", "", nil, nil))

	// Owner edit: partial fields plus an appended image.
	var updated model.Item
	status := srv.upload("PUT", "/api/items/"+item.ID, alice,
		map[string]string{"title": "Long wool coat", "pointsValue": "60"}, [][]byte{pngImage(t)}, &updated)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Long wool coat", updated.Title)
	assert.Equal(t, 60, updated.PointsValue)
	assert.Equal(t, "outerwear", string(updated.Category))
	assert.Len(t, updated.Images, 2)

	// Other users may not edit or delete.
	bob, _ := srv.register("Bob", "bob@example.com")
	assert.Equal(t, http.StatusForbidden,
		srv.upload("PUT", "/api/items/"+item.ID, bob, map[string]string{"title": "Mine now"}, nil, nil))
	assert.Equal(t, http.StatusForbidden, srv.do("DELETE", "/api/items/"+item.ID, bob, nil, nil))

	var mine []model.Item
	require.Equal(t, http.StatusOK, srv.do("GET", "/api/items/mine", alice, nil, &mine))
	assert.Len(t, mine, 1)

	require.Equal(t, http.StatusOK, srv.do("DELETE", "/api/items/"+item.ID, alice, nil, nil))
	assert.Equal(t, http.StatusNotFound, srv.do("GET", "/api/items/"+item.ID, "", nil, nil))
}

func TestCreateItemValidation(t *testing.T) {
	srv := setupTestServer(t, false, nil)
	alice, _ := srv.register("Alice", "alice@example.com")
	img := pngImage(t)

	tests := []struct {
		name   string
		modify func(map[string]string)
		images [][]byte
		status int
	}{
		{"no images", nil, nil, http.StatusBadRequest},
		{"too many images", nil, [][]byte{img, img, img, img, img, img}, http.StatusBadRequest},
		{"not an image", nil, [][]byte{[]byte("plain text, not a picture")}, http.StatusBadRequest},
		{"short title", func(f map[string]string) { f["title"] = "ab" }, [][]byte{img}, http.StatusBadRequest},
		{"points too high", func(f map[string]string) { f["pointsValue"] = "501" }, [][]byte{img}, http.StatusBadRequest},
		{"unknown condition", func(f map[string]string) { f["condition"] = "shredded" }, [][]byte{img}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := listingFields("Denim jacket", 40)
			if tt.modify != nil {
				tt.modify(fields)
			}
			assert.Equal(t, tt.status, srv.upload("POST", "/api/items", alice, fields, tt.images, nil))
		})
	}
}

func TestPointsSwapFlow(t *testing.T) {
	srv := setupTestServer(t, false, nil)
	alice, aliceUser := srv.register("Alice", "alice@example.com")
	bob, bobUser := srv.register("Bob", "bob@example.com")
	item := srv.listItem(alice, "Wool coat", 50)

	var sw model.Swap
	status := srv.do("POST", "/api/swaps", bob, map[string]any{
		"itemRequestedId": item.ID,
		"swapType":        "points",
		"pointsUsed":      50,
		"message":         "<b>Would love this</b>",
	}, &sw)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, model.SwapStatusPending, sw.Status)
	assert.Equal(t, "Would love this", sw.Message)
	assert.Equal(t, 50, srv.balance(bob), "points are held at request time")

	var incoming []model.Swap
	require.Equal(t, http.StatusOK, srv.do("GET", "/api/swaps/my-items", alice, nil, &incoming))
	require.Len(t, incoming, 1)
	assert.Equal(t, sw.ID, incoming[0].ID)

	// Only participants and admins see the swap.
	carol, _ := srv.register("Carol", "carol@example.com")
	assert.Equal(t, http.StatusForbidden, srv.do("GET", "/api/swaps/"+sw.ID, carol, nil, nil))
	assert.Equal(t, http.StatusOK, srv.do("GET", "/api/swaps/"+sw.ID, alice, nil, nil))

	// The requester cannot accept.
	assert.Equal(t, http.StatusForbidden, srv.do("PUT", "/api/swaps/"+sw.ID+"/accept", bob, nil, nil))

	var accepted model.Swap
	require.Equal(t, http.StatusOK, srv.do("PUT", "/api/swaps/"+sw.ID+"/accept", alice, nil, &accepted))
	assert.Equal(t, model.SwapStatusAccepted, accepted.Status)
	assert.NotNil(t, accepted.CompletedAt)

	assert.Equal(t, 150, srv.balance(alice))
	assert.Equal(t, 50, srv.balance(bob))

	var got model.Item
	require.Equal(t, http.StatusOK, srv.do("GET", "/api/items/"+item.ID, "", nil, &got))
	assert.Equal(t, model.ItemStatusSwapped, got.Status)

	var errResp map[string]string
	assert.Equal(t, http.StatusConflict, srv.do("PUT", "/api/swaps/"+sw.ID+"/reject", alice, nil, &errResp))
	assert.Equal(t, model.ErrAlreadyProcessed.Error(), errResp["message"])

	var requests []model.Swap
	require.Equal(t, http.StatusOK, srv.do("GET", "/api/swaps/my-requests", bob, nil, &requests))
	require.Len(t, requests, 1)
	assert.Equal(t, bobUser.ID, requests[0].RequesterID)
	require.NotNil(t, requests[0].ItemRequested)
	assert.Equal(t, aliceUser.ID, requests[0].ItemRequested.OwnerID)

	var ledger []model.LedgerEntry
	require.Equal(t, http.StatusOK, srv.do("GET", "/api/auth/ledger", bob, nil, &ledger))
	sum := 0
	for _, e := range ledger {
		sum += e.Delta
	}
	assert.Equal(t, 50, sum)
}

func TestSwapRequestErrors(t *testing.T) {
	srv := setupTestServer(t, false, nil)
	alice, _ := srv.register("Alice", "alice@example.com")
	bob, _ := srv.register("Bob", "bob@example.com")
	coat := srv.listItem(alice, "Wool coat", 50)
	pricey := srv.listItem(alice, "Designer gown", 300)
	scarf := srv.listItem(bob, "Silk scarf", 20)

	tests := []struct {
		name   string
		token  string
		body   map[string]any
		status int
		msg    string
	}{
		{"own item", alice, map[string]any{"itemRequestedId": coat.ID, "swapType": "points", "pointsUsed": 50},
			http.StatusBadRequest, model.ErrSelfSwap.Error()},
		{"too few points", bob, map[string]any{"itemRequestedId": coat.ID, "swapType": "points", "pointsUsed": 10},
			http.StatusBadRequest, model.ErrInsufficientOfferedPoints.Error()},
		{"balance too low", bob, map[string]any{"itemRequestedId": pricey.ID, "swapType": "points", "pointsUsed": 300},
			http.StatusBadRequest, model.ErrInsufficientBalance.Error()},
		{"offer item not owned", bob, map[string]any{"itemRequestedId": coat.ID, "swapType": "direct", "itemOfferedId": pricey.ID},
			http.StatusBadRequest, model.ErrInvalidOfferedItem.Error()},
		{"unknown type", bob, map[string]any{"itemRequestedId": coat.ID, "swapType": "barter"},
			http.StatusBadRequest, ""},
		{"missing item", bob, map[string]any{"itemRequestedId": "nope", "swapType": "points", "pointsUsed": 50},
			http.StatusConflict, model.ErrItemUnavailable.Error()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp map[string]string
			assert.Equal(t, tt.status, srv.do("POST", "/api/swaps", tt.token, tt.body, &resp))
			if tt.msg != "" {
				assert.Equal(t, tt.msg, resp["message"])
			}
		})
	}

	// A valid direct offer still works afterwards.
	var sw model.Swap
	require.Equal(t, http.StatusCreated, srv.do("POST", "/api/swaps", bob, map[string]any{
		"itemRequestedId": coat.ID, "swapType": "direct", "itemOfferedId": scarf.ID,
	}, &sw))
	assert.Equal(t, 0, sw.PointsUsed)
	assert.Equal(t, model.StartingPoints, srv.balance(bob))
}

func TestCancelAndRejectRefund(t *testing.T) {
	srv := setupTestServer(t, false, nil)
	alice, _ := srv.register("Alice", "alice@example.com")
	bob, _ := srv.register("Bob", "bob@example.com")
	item := srv.listItem(alice, "Wool coat", 40)

	request := func() model.Swap {
		var sw model.Swap
		require.Equal(t, http.StatusCreated, srv.do("POST", "/api/swaps", bob, map[string]any{
			"itemRequestedId": item.ID, "swapType": "points", "pointsUsed": 40,
		}, &sw))
		return sw
	}

	sw := request()
	assert.Equal(t, 60, srv.balance(bob))
	assert.Equal(t, http.StatusForbidden, srv.do("PUT", "/api/swaps/"+sw.ID+"/cancel", alice, nil, nil))

	var cancelled model.Swap
	require.Equal(t, http.StatusOK, srv.do("PUT", "/api/swaps/"+sw.ID+"/cancel", bob, nil, &cancelled))
	assert.Equal(t, model.SwapStatusCancelled, cancelled.Status)
	assert.Equal(t, model.StartingPoints, srv.balance(bob))

	sw = request()
	var rejected model.Swap
	require.Equal(t, http.StatusOK, srv.do("PUT", "/api/swaps/"+sw.ID+"/reject", alice, nil, &rejected))
	assert.Equal(t, model.SwapStatusRejected, rejected.Status)
	assert.Equal(t, model.StartingPoints, srv.balance(bob))
	assert.Equal(t, model.StartingPoints, srv.balance(alice))
}

func TestDeleteItemWithdrawsSwaps(t *testing.T) {
	srv := setupTestServer(t, false, nil)
	alice, _ := srv.register("Alice", "alice@example.com")
	bob, _ := srv.register("Bob", "bob@example.com")
	item := srv.listItem(alice, "Wool coat", 30)

	var sw model.Swap
	require.Equal(t, http.StatusCreated, srv.do("POST", "/api/swaps", bob, map[string]any{
		"itemRequestedId": item.ID, "swapType": "points", "pointsUsed": 30,
	}, &sw))

	require.Equal(t, http.StatusOK, srv.do("DELETE", "/api/items/"+item.ID, alice, nil, nil))
	assert.Equal(t, model.StartingPoints, srv.balance(bob))

	// Swap history keeps the item around as removed.
	var got model.Swap
	require.Equal(t, http.StatusOK, srv.do("GET", "/api/swaps/"+sw.ID, bob, nil, &got))
	assert.Equal(t, model.SwapStatusCancelled, got.Status)

	var page browseResponse
	require.Equal(t, http.StatusOK, srv.do("GET", "/api/items", "", nil, &page))
	assert.Equal(t, 0, page.Total)
}

func TestModerationFlow(t *testing.T) {
	srv := setupTestServer(t, true, nil)
	adminToken, _ := srv.admin()
	alice, _ := srv.register("Alice", "alice@example.com")

	item := srv.listItem(alice, "Wool coat", 50)
	assert.Equal(t, model.ItemStatusPending, item.Status)
	assert.False(t, item.IsApproved)

	var page browseResponse
	require.Equal(t, http.StatusOK, srv.do("GET", "/api/items", "", nil, &page))
	assert.Equal(t, 0, page.Total)

	// Listings awaiting review are visible to the owner and admins only.
	bob, _ := srv.register("Bob", "bob@example.com")
	assert.Equal(t, http.StatusNotFound, srv.do("GET", "/api/items/"+item.ID, "", nil, nil))
	assert.Equal(t, http.StatusNotFound, srv.do("GET", "/api/items/"+item.ID, bob, nil, nil))
	assert.Equal(t, http.StatusOK, srv.do("GET", "/api/items/"+item.ID, alice, nil, nil))
	assert.Equal(t, http.StatusOK, srv.do("GET", "/api/items/"+item.ID, adminToken, nil, nil))
	assert.Equal(t, http.StatusUnauthorized, srv.do("GET", "/api/items/"+item.ID, "garbage", nil, nil))

	// Regular users cannot moderate.
	assert.Equal(t, http.StatusForbidden, srv.do("GET", "/api/admin/pending-items", alice, nil, nil))
	assert.Equal(t, http.StatusForbidden, srv.do("PUT", "/api/admin/approve-item/"+item.ID, alice, nil, nil))

	var pending []model.Item
	require.Equal(t, http.StatusOK, srv.do("GET", "/api/admin/pending-items", adminToken, nil, &pending))
	require.Len(t, pending, 1)

	var approved model.Item
	require.Equal(t, http.StatusOK, srv.do("PUT", "/api/admin/approve-item/"+item.ID, adminToken, nil, &approved))
	assert.True(t, approved.IsApproved)
	assert.Equal(t, model.ItemStatusAvailable, approved.Status)

	require.Equal(t, http.StatusOK, srv.do("GET", "/api/items", "", nil, &page))
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, http.StatusOK, srv.do("GET", "/api/items/"+item.ID, "", nil, nil))

	var errResp map[string]string
	assert.Equal(t, http.StatusConflict, srv.do("PUT", "/api/admin/approve-item/"+item.ID, adminToken, nil, &errResp))
	assert.Equal(t, model.ErrNotAwaitingModeration.Error(), errResp["message"])

	var stats model.Stats
	require.Equal(t, http.StatusOK, srv.do("GET", "/api/admin/stats", adminToken, nil, &stats))
	assert.Equal(t, 3, stats.TotalUsers)
	assert.Equal(t, 1, stats.TotalItems)
	assert.Equal(t, 1, stats.ActiveItems)
	assert.Equal(t, 0, stats.PendingItems)

	require.Equal(t, http.StatusOK, srv.do("DELETE", "/api/admin/remove-item/"+item.ID, adminToken, nil, nil))
	require.Equal(t, http.StatusOK, srv.do("GET", "/api/items", "", nil, &page))
	assert.Equal(t, 0, page.Total)
	assert.Equal(t, http.StatusNotFound, srv.do("GET", "/api/items/"+item.ID, "", nil, nil))
	assert.Equal(t, http.StatusOK, srv.do("GET", "/api/items/"+item.ID, alice, nil, nil))

	assert.Equal(t, http.StatusNotFound, srv.do("PUT", "/api/admin/approve-item/missing", adminToken, nil, nil))
}

func TestAdminUsers(t *testing.T) {
	srv := setupTestServer(t, false, nil)
	adminToken, adminUser := srv.admin()
	alice, aliceUser := srv.register("Alice", "alice@example.com")

	var users []model.User
	require.Equal(t, http.StatusOK, srv.do("GET", "/api/admin/users", adminToken, nil, &users))
	assert.Len(t, users, 2)

	var resp map[string]int
	require.Equal(t, http.StatusOK, srv.do("POST", "/api/admin/users/"+aliceUser.ID+"/points", adminToken,
		map[string]int{"delta": 25}, &resp))
	assert.Equal(t, 125, resp["points"])
	assert.Equal(t, 125, srv.balance(alice))

	assert.Equal(t, http.StatusBadRequest, srv.do("POST", "/api/admin/users/"+aliceUser.ID+"/points", adminToken,
		map[string]int{"delta": -500}, nil))
	assert.Equal(t, http.StatusBadRequest, srv.do("POST", "/api/admin/users/"+aliceUser.ID+"/points", adminToken,
		map[string]int{"delta": 0}, nil))

	var promoted model.User
	require.Equal(t, http.StatusOK, srv.do("PUT", "/api/admin/users/"+aliceUser.ID+"/role", adminToken,
		map[string]string{"role": "admin"}, &promoted))
	assert.Equal(t, model.RoleAdmin, promoted.Role)

	assert.Equal(t, http.StatusBadRequest, srv.do("PUT", "/api/admin/users/"+aliceUser.ID+"/role", adminToken,
		map[string]string{"role": "superuser"}, nil))
	assert.Equal(t, http.StatusBadRequest, srv.do("PUT", "/api/admin/users/"+adminUser.ID+"/role", adminToken,
		map[string]string{"role": "user"}, nil))
	assert.Equal(t, http.StatusNotFound, srv.do("PUT", "/api/admin/users/missing/role", adminToken,
		map[string]string{"role": "user"}, nil))

	var recent []model.Swap
	require.Equal(t, http.StatusOK, srv.do("GET", "/api/admin/recent-swaps", adminToken, nil, &recent))
	assert.Empty(t, recent)
}

func TestChangePasswordAndLogout(t *testing.T) {
	srv := setupTestServer(t, false, nil)
	token, _ := srv.register("Alice", "alice@example.com")

	assert.Equal(t, http.StatusUnauthorized, srv.do("PUT", "/api/auth/password", token,
		map[string]string{"currentPassword": "wrong-one", "newPassword": "newpassword1"}, nil))
	require.Equal(t, http.StatusOK, srv.do("PUT", "/api/auth/password", token,
		map[string]string{"currentPassword": "password123", "newPassword": "newpassword1"}, nil))

	assert.Equal(t, http.StatusOK, srv.do("POST", "/api/auth/login", "",
		map[string]string{"email": "alice@example.com", "password": "newpassword1"}, nil))

	require.Equal(t, http.StatusOK, srv.do("POST", "/api/auth/logout", token, nil, nil))

	var resp map[string]string
	assert.Equal(t, http.StatusUnauthorized, srv.do("GET", "/api/auth/profile", token, nil, &resp))
	assert.Equal(t, "token has been revoked", resp["message"])
}

func TestAuthRateLimit(t *testing.T) {
	srv := setupTestServer(t, false, NewRateLimiter(2))

	login := func() *http.Response {
		body, _ := json.Marshal(map[string]string{"email": "nobody@example.com", "password": "password123"})
		resp, err := http.Post(srv.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
		require.NoError(t, err)
		resp.Body.Close()
		return resp
	}

	assert.Equal(t, http.StatusUnauthorized, login().StatusCode)
	assert.Equal(t, http.StatusUnauthorized, login().StatusCode)

	resp := login()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))

	// Browsing is not limited.
	assert.Equal(t, http.StatusOK, srv.do("GET", "/api/items", "", nil, nil))
}

func TestRateLimiterPrunesIdleClients(t *testing.T) {
	rl := NewRateLimiter(1)
	start := time.Now()

	assert.True(t, rl.allow("10.0.0.1", start))
	assert.False(t, rl.allow("10.0.0.1", start))
	assert.True(t, rl.allow("10.0.0.2", start))

	later := start.Add(rl.ttl + time.Second)
	assert.True(t, rl.allow("10.0.0.3", later))
	assert.Len(t, rl.clients, 1)

	assert.Nil(t, NewRateLimiter(0))
}
