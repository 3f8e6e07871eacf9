package handlers

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"jewellery-billing-api/internal/models"
	"jewellery-billing-api/internal/services"
)

const dateLayout = "2006-01-02"

// paging reads limit and offset through get, which is c.Query for gin and
// the query map for Lambda
func paging(get func(string) string, defaultLimit int) (int, int, error) {
	limit := defaultLimit
	if raw := get("limit"); raw != "" {
		val, err := strconv.Atoi(raw)
		if err != nil || val < 0 {
			return 0, 0, fmt.Errorf("limit must be a non-negative integer")
		}
		limit = val
	}

	offset := 0
	if raw := get("offset"); raw != "" {
		val, err := strconv.Atoi(raw)
		if err != nil || val < 0 {
			return 0, 0, fmt.Errorf("offset must be a non-negative integer")
		}
		offset = val
	}

	return limit, offset, nil
}

// parseDate accepts RFC3339 or a plain YYYY-MM-DD in loc. A plain end date
// covers the whole day, so it is moved to the next midnight.
func parseDate(value string, loc *time.Location, isEnd bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}

	day, err := time.ParseInLocation(dateLayout, value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: use RFC3339 or YYYY-MM-DD", value)
	}
	if isEnd {
		day = day.AddDate(0, 0, 1)
	}
	return day, nil
}

// billFilters builds listing filters from query parameters
func billFilters(get func(string) string, loc *time.Location) (*services.BillFilters, error) {
	limit, offset, err := paging(get, 50)
	if err != nil {
		return nil, err
	}

	filters := &services.BillFilters{Limit: limit, Offset: offset}

	if raw := get("start_date"); raw != "" {
		start, err := parseDate(raw, loc, false)
		if err != nil {
			return nil, err
		}
		filters.StartDate = &start
	}

	if raw := get("end_date"); raw != "" {
		end, err := parseDate(raw, loc, true)
		if err != nil {
			return nil, err
		}
		filters.EndDate = &end
	}

	if raw := get("status"); raw != "" {
		status := models.PaymentStatus(raw)
		filters.Status = &status
	}

	if raw := get("type"); raw != "" {
		kind := models.DocumentKind(raw)
		filters.Type = &kind
	}

	return filters, nil
}

func productFilters(get func(string) string) (*services.ProductFilters, error) {
	limit, offset, err := paging(get, 0)
	if err != nil {
		return nil, err
	}

	filters := &services.ProductFilters{Limit: limit, Offset: offset}

	if category := strings.TrimSpace(get("category")); category != "" {
		filters.Category = &category
	}

	if raw := get("low_stock"); raw != "" {
		lowStock, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("low_stock must be true or false")
		}
		filters.LowStock = lowStock
	}

	return filters, nil
}

// listResponse is the envelope of paged listings
type listResponse struct {
	Data   interface{} `json:"data"`
	Total  int64       `json:"total"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}
