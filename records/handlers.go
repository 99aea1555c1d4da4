package records

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/professorSergio12/Stock-Broker/config"
	"github.com/professorSergio12/Stock-Broker/filters"
	"github.com/professorSergio12/Stock-Broker/utils"
)

// RegisterRoutes mounts the read endpoints under rg (normally /api/records).
func RegisterRoutes(rg *gin.RouterGroup, svc *Service) {
	rg.GET("", ListHandler(svc))
	rg.GET("/stats", StatsHandler(svc))
	rg.GET("/holdings", HoldingsHandler(svc))
	rg.GET("/holdings/:security/transactions", SecurityTransactionsHandler(svc))
	rg.GET("/row/:id", GetByIDHandler(svc))
	for _, m := range []Meta{MetaExchanges, MetaTransactionTypes, MetaClientIDs, MetaSymbols} {
		rg.GET("/meta/"+string(m), MetaHandler(svc, m))
	}
	rg.GET("/meta/stocks-by-client", StocksByClientHandler(svc))
}

// respondError maps service errors to a status: validation 400, not found 404,
// anything else 500 with msg.
func respondError(c *gin.Context, funcName, msg string, err error) {
	var ve *utils.ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"message": ve.Error()})
	case utils.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"message": "Not found"})
	default:
		config.LogError(config.GetLogger(), "records", funcName, msg, c.Request.URL.RawQuery, err)
		body := gin.H{"message": msg}
		if !config.IsProduction() {
			body["error"] = err.Error()
		}
		c.JSON(http.StatusInternalServerError, body)
	}
}

func queryInt(c *gin.Context, key string, def int) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return n
}

func ListHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := svc.List(c.Request.Context(), ListQuery{
			Filters: filters.FromQuery(c.Request.URL.Query()),
			Page:    queryInt(c, "page", 1),
			Limit:   queryInt(c, "limit", DefaultLimit),
			Table:   c.Query("table"),
		})
		if err != nil {
			respondError(c, "ListHandler", "Failed to fetch records", err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

func StatsHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		st, err := svc.Stats(c.Request.Context(), filters.FromQuery(c.Request.URL.Query()), c.Query("table"))
		if err != nil {
			respondError(c, "StatsHandler", "Failed to fetch stats", err)
			return
		}
		c.JSON(http.StatusOK, st)
	}
}

func HoldingsHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var q HoldingsQuery
		if err := c.ShouldBindQuery(&q); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid query", "errors": utils.ProcessValidationErrors(err)})
			return
		}
		res, err := svc.Holdings(c.Request.Context(), q)
		if err != nil {
			respondError(c, "HoldingsHandler", "Failed to fetch holdings", err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

func SecurityTransactionsHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var q SecurityQuery
		if err := c.ShouldBindQuery(&q); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid query", "errors": utils.ProcessValidationErrors(err)})
			return
		}
		q.Security = c.Param("security")
		res, err := svc.SecurityTransactions(c.Request.Context(), q)
		if err != nil {
			respondError(c, "SecurityTransactionsHandler", "Failed to fetch transactions", err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

func GetByIDHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		rec, err := svc.GetByID(c.Request.Context(), c.Query("table"), c.Param("id"))
		if err != nil {
			respondError(c, "GetByIDHandler", "Failed to fetch record", err)
			return
		}
		c.JSON(http.StatusOK, rec)
	}
}

func MetaHandler(svc *Service, m Meta) gin.HandlerFunc {
	return func(c *gin.Context) {
		values, err := svc.Distinct(c.Request.Context(), m, c.Query("table"))
		if err != nil {
			respondError(c, "MetaHandler", "Failed to fetch "+string(m), err)
			return
		}
		c.JSON(http.StatusOK, values)
	}
}

func StocksByClientHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		values, err := svc.StocksByClient(c.Request.Context(), c.Query("clientId"), c.Query("table"))
		if err != nil {
			respondError(c, "StocksByClientHandler", "Failed to fetch stocks", err)
			return
		}
		c.JSON(http.StatusOK, values)
	}
}
