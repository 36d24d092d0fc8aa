package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/d60-Lab/anonboard/config"
	"github.com/d60-Lab/anonboard/internal/api/handler"
	"github.com/d60-Lab/anonboard/internal/chain"
	"github.com/d60-Lab/anonboard/internal/model"
	"github.com/d60-Lab/anonboard/internal/repository"
	"github.com/d60-Lab/anonboard/internal/service"
)

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&model.Post{}, &model.TipEvent{}))

	token := chain.Token{Decimals: 6}
	svc := service.NewPostService(repository.NewPostRepository(db), token, nil, 15)

	cfg := &config.Config{}
	cfg.RateLimit.RPS = 10000
	cfg.RateLimit.Burst = 10000
	return NewRouter(handler.NewHandler(svc, token), cfg)
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	// 避免测试里反解 gzip 响应
	req.Header.Set("Accept-Encoding", "identity")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var out map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w, out
}

func TestCreatePostAndFeedShape(t *testing.T) {
	r := setupRouter(t)
	addr := "0x" + strings.Repeat("ab", 20)

	w, out := doJSON(t, r, http.MethodPost, "/posts", `{"text":"hello world","authorAddress":"`+addr+`"}`)
	require.Equal(t, http.StatusOK, w.Code)

	post := out["post"].(map[string]any)
	require.Equal(t, "hello world", post["text"])
	require.EqualValues(t, 0, post["tipsCount"])
	require.Equal(t, "0.000000", post["totalTipsAmount"])

	author := post["author"].(map[string]any)
	require.Equal(t, addr[:6]+"..."+addr[len(addr)-4:], author["display_name"])
	require.Equal(t, "user_"+addr[2:8], author["username"])
	require.Equal(t, addr, author["custody_address"])
	eth := author["verified_addresses"].(map[string]any)["eth_addresses"].([]any)
	require.Len(t, eth, 1)
	require.Equal(t, addr, eth[0])

	w, out = doJSON(t, r, http.MethodGet, "/posts", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, out["posts"].([]any), 1)
	require.Nil(t, out["nextCursor"])
}

func TestCreatePostAnonymousShape(t *testing.T) {
	r := setupRouter(t)

	w, out := doJSON(t, r, http.MethodPost, "/posts", `{"text":"no address here"}`)
	require.Equal(t, http.StatusOK, w.Code)

	author := out["post"].(map[string]any)["author"].(map[string]any)
	require.Equal(t, "Anonymous", author["name"])
	require.Equal(t, "anonymous", author["username"])
	require.Equal(t, "0x0000000000000000000000000000000000000000", author["custody_address"])
	require.Empty(t, author["verified_addresses"].(map[string]any)["eth_addresses"])
}

func TestCreatePostValidation(t *testing.T) {
	r := setupRouter(t)

	w, out := doJSON(t, r, http.MethodPost, "/posts", `{"text":""}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.NotEmpty(t, out["error"])

	w, _ = doJSON(t, r, http.MethodPost, "/posts", `{"text":"hi","authorAddress":"not-an-address"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	long := strings.Repeat("x", 10001)
	w, _ = doJSON(t, r, http.MethodPost, "/posts", `{"text":"`+long+`"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFeedPagination(t *testing.T) {
	r := setupRouter(t)
	for i := 0; i < 20; i++ {
		w, _ := doJSON(t, r, http.MethodPost, "/posts", `{"text":"post"}`)
		require.Equal(t, http.StatusOK, w.Code)
	}

	w, out := doJSON(t, r, http.MethodGet, "/posts", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, out["posts"].([]any), 15)
	cursor, ok := out["nextCursor"].(string)
	require.True(t, ok)

	w, out = doJSON(t, r, http.MethodGet, "/posts?cursor="+cursor, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, out["posts"].([]any), 5)
	require.Nil(t, out["nextCursor"])
}

func TestTipEndpoint(t *testing.T) {
	r := setupRouter(t)
	addr := "0x" + strings.Repeat("ab", 20)
	_, out := doJSON(t, r, http.MethodPost, "/posts", `{"text":"tip me","authorAddress":"`+addr+`"}`)
	id := out["post"].(map[string]any)["id"].(string)

	// 金额缺失或非字符串
	w, _ := doJSON(t, r, http.MethodPost, "/posts/"+id+"/tip", `{}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = doJSON(t, r, http.MethodPost, "/posts/"+id+"/tip", `{"amount":1}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	// 帖子不存在按 500 处理
	w, _ = doJSON(t, r, http.MethodPost, "/posts/unknown/tip", `{"amount":"0.10"}`)
	require.Equal(t, http.StatusInternalServerError, w.Code)

	w, out = doJSON(t, r, http.MethodPost, "/posts/"+id+"/tip", `{"amount":"0.10"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, true, out["success"])

	_, out = doJSON(t, r, http.MethodGet, "/posts/"+id, "")
	post := out["post"].(map[string]any)
	require.EqualValues(t, 1, post["tipsCount"])
	require.Equal(t, "0.100000", post["totalTipsAmount"])
}

func TestLikeAndGet(t *testing.T) {
	r := setupRouter(t)
	_, out := doJSON(t, r, http.MethodPost, "/posts", `{"text":"like me"}`)
	id := out["post"].(map[string]any)["id"].(string)

	w, out := doJSON(t, r, http.MethodPost, "/posts/"+id+"/like", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, true, out["success"])

	w, _ = doJSON(t, r, http.MethodPost, "/posts/unknown/like", "")
	require.Equal(t, http.StatusNotFound, w.Code)

	w, out = doJSON(t, r, http.MethodGet, "/posts/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)
	reactions := out["post"].(map[string]any)["reactions"].(map[string]any)
	require.EqualValues(t, 1, reactions["likes_count"])

	w, _ = doJSON(t, r, http.MethodGet, "/posts/unknown", "")
	require.Equal(t, http.StatusNotFound, w.Code)
}
