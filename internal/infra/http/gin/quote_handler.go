package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"stayquote/internal/app/dto"
	quoteapp "stayquote/internal/app/handlers/quote"
	"stayquote/internal/app/queries"
)

type QuoteHandler struct {
	Queries queries.Bus
	Logger  *slog.Logger
}

func (h QuoteHandler) Quote(c *gin.Context) {
	query, err := h.quoteQuery(c)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	result, err := queries.Ask[quoteapp.GetQuoteQuery, dto.Quote](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	if result.RateMissing {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "no rate covers every night of the stay", "quote": result})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h QuoteHandler) quoteQuery(c *gin.Context) (quoteapp.GetQuoteQuery, error) {
	q := quoteapp.GetQuoteQuery{PropertyID: c.Param("id"), TenantID: tenantID(c)}
	var err error
	if q.From, err = dateQuery(c, "from"); err != nil {
		return q, err
	}
	if q.To, err = dateQuery(c, "to"); err != nil {
		return q, err
	}
	if q.Adults, err = intQuery(c, "adults"); err != nil {
		return q, err
	}
	if q.Children, err = intQuery(c, "children"); err != nil {
		return q, err
	}
	if q.Pets, err = intQuery(c, "pets"); err != nil {
		return q, err
	}
	q.AlwaysIncludeQuote, err = boolQuery(c, "alwaysIncludeQuote")
	return q, err
}

func (h QuoteHandler) Availability(c *gin.Context) {
	from, err := dateQuery(c, "from")
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	to, err := dateQuery(c, "to")
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	guests, err := intQuery(c, "guests")
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	query := quoteapp.CheckAvailabilityQuery{
		PropertyID: c.Param("id"),
		TenantID:   tenantID(c),
		From:       from,
		To:         to,
		Guests:     guests,
		Excluded:   listQuery(c, "exclude"),
	}
	result, err := queries.Ask[quoteapp.CheckAvailabilityQuery, dto.Availability](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ QuoteHTTP = QuoteHandler{}
