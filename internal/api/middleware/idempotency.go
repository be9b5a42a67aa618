package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"esca/queue-gateway/internal/constant"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const pendingMarker = "pending"

type idempotencyStore interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// IdempotencyMiddleware makes retried registrations safe: the first request
// with a given Idempotency-Key runs, later ones get the stored response.
type IdempotencyMiddleware struct {
	redisClient idempotencyStore
	logger      *logrus.Logger
	ttl         time.Duration
}

func NewIdempotencyMiddleware(redisClient idempotencyStore, logger *logrus.Logger) *IdempotencyMiddleware {
	return &IdempotencyMiddleware{
		redisClient: redisClient,
		logger:      logger,
		ttl:         constant.IdempotencyTTL,
	}
}

func (i *IdempotencyMiddleware) Handle(c *gin.Context) {
	key := c.GetHeader(constant.IdempotencyHeader)
	if key == "" {
		c.Next()
		return
	}

	h := sha256.New()
	h.Write([]byte(fmt.Sprintf("%s:%s:%s", c.Request.Method, c.FullPath(), key)))
	redisKey := fmt.Sprintf("%s%x", constant.RedisIdempotencyPrefix, h.Sum(nil))

	acquired, err := i.redisClient.SetNX(c, redisKey, pendingMarker, i.ttl).Result()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if !acquired {
		i.replay(c, redisKey)
		return
	}

	w := &bodyRecorder{ResponseWriter: c.Writer}
	c.Writer = w
	c.Next()

	status := w.Status()
	if status < 200 || status >= 300 {
		// let the client retry a failed request with the same key
		if err := i.redisClient.Del(c, redisKey).Err(); err != nil {
			i.logger.WithContext(c).Warn(errors.Wrap(err, "idempotency : failed to release key"))
		}
		return
	}

	stored := fmt.Sprintf("%d\n%s", status, w.body.String())
	if err := i.redisClient.Set(c, redisKey, stored, i.ttl).Err(); err != nil {
		i.logger.WithContext(c).Warn(errors.Wrap(err, "idempotency : failed to store response"))
	}
}

func (i *IdempotencyMiddleware) replay(c *gin.Context, redisKey string) {
	stored, err := i.redisClient.Get(c, redisKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	status, body, ok := decodeStored(stored)
	if !ok {
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{
			"code":    http.StatusConflict,
			"message": "a request with this idempotency key is still in progress",
		})
		return
	}

	c.Header("Idempotent-Replayed", "true")
	c.Data(status, "application/json; charset=utf-8", []byte(body))
	c.Abort()
}

// decodeStored splits "<status>\n<body>"; the pending marker does not parse.
func decodeStored(stored string) (int, string, bool) {
	idx := strings.IndexByte(stored, '\n')
	if idx < 0 {
		return 0, "", false
	}
	status, err := strconv.Atoi(stored[:idx])
	if err != nil {
		return 0, "", false
	}
	return status, stored[idx+1:], true
}

type bodyRecorder struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *bodyRecorder) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyRecorder) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}
