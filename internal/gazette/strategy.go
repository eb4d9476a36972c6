package gazette

import (
	"net/url"
	"strconv"
)

// messageTypeIDs is the fixed filter the gazette UI sends for the
// insolvency message types
var messageTypeIDs = []string{
	"603102f09e3f5ad99538175719970bde",
	"14a1d71df21558e5ade0214f90482cdc",
	"24295ca1259a5876ba7bf8ef496feed6",
	"383f18001b395f39825061a5c0798fad",
	"018d01410efb5472a6989328817df00a",
	"941c2e759f325408a946031217b6d669",
}

// Strategy is one fixed combination of search parameters. The search API
// rejects some combinations with server faults depending on load, so an
// ordered ladder of strategies is tried until one succeeds.
type Strategy struct {
	Name              string
	PageSize          int
	Order             int
	IncludeTypeFilter bool
}

// defaultStrategies is the fallback ladder, most API-faithful first and
// most permissive last. The order is significant.
var defaultStrategies = []Strategy{
	{Name: "ui-exact", PageSize: 10, Order: 40, IncludeTypeFilter: true},
	{Name: "no-type-filter", PageSize: 10, Order: 40, IncludeTypeFilter: false},
	{Name: "larger-pages", PageSize: 20, Order: 40, IncludeTypeFilter: false},
	{Name: "default-order", PageSize: 10, Order: 0, IncludeTypeFilter: false},
	{Name: "minimal", PageSize: 50, Order: 0, IncludeTypeFilter: false},
}

// DefaultStrategies returns a copy of the built-in strategy ladder
func DefaultStrategies() []Strategy {
	out := make([]Strategy, len(defaultStrategies))
	copy(out, defaultStrategies)
	return out
}

// queryParams builds the search query for one page of one day
func (s Strategy) queryParams(dateISO string, page int) url.Values {
	params := url.Values{}
	params.Set("d", "false")
	params.Set("fromDate", dateISO+"T00:00:00")
	params.Set("toDate", dateISO+"T00:00:00")
	params.Set("userOnly", "false")
	params.Set("messagesforuser", "")
	params.Set("o", strconv.Itoa(s.Order))
	params.Set("page", strconv.Itoa(page))
	params.Set("ps", strconv.Itoa(s.PageSize))
	if s.IncludeTypeFilter {
		for _, id := range messageTypeIDs {
			params.Add("m", id)
		}
	}
	return params
}
