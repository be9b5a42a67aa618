package paginator

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	defaultSize = 10
	maxSize     = 100
)

type Paginate struct {
	From, Size, Page int
}

func New(c *gin.Context) Paginate {
	sizeStr := c.DefaultQuery("page_size", strconv.Itoa(defaultSize))
	pageStr := c.DefaultQuery("page", "1")

	size, err := strconv.Atoi(sizeStr)
	if err != nil || size <= 0 {
		size = defaultSize
	}
	if size > maxSize {
		size = maxSize
	}

	page, err := strconv.Atoi(pageStr)
	if err != nil || page <= 0 {
		page = 1
	}

	return Paginate{
		From: (page - 1) * size,
		Size: size,
		Page: page,
	}
}

// Bounds clamps the page to a slice of length total.
func (p Paginate) Bounds(total int) (from, to int) {
	from = min(p.From, total)
	to = min(from+p.Size, total)
	return from, to
}
