package server

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/rickgao/arbfeed/internal/view"
)

// paramsFromQuery overlays the query parameters present in q onto base.
// List parameters accept repeated keys and comma-separated values.
func paramsFromQuery(base view.Params, q url.Values) (view.Params, error) {
	p := base

	if q.Has("search") {
		p.Search = q.Get("search")
	}
	if q.Has("buy_exchange") {
		p.Columns.BuyExchange = q.Get("buy_exchange")
	}
	if q.Has("sell_exchange") {
		p.Columns.SellExchange = q.Get("sell_exchange")
	}
	if q.Has("symbol") {
		p.Columns.Symbol = q.Get("symbol")
	}
	if q.Has("networks") {
		p.Columns.Networks = q.Get("networks")
	}
	if q.Has("exchanges") {
		p.Exchanges = splitList(q["exchanges"])
	}
	if q.Has("assets") {
		p.Assets = splitList(q["assets"])
	}

	if q.Has("sort") {
		key, err := view.ParseSortKey(q.Get("sort"))
		if err != nil {
			return p, err
		}
		p.Sort.Key = key
	}
	for _, name := range []string{"direction", "order"} {
		if !q.Has(name) {
			continue
		}
		dir, err := view.ParseDirection(q.Get(name))
		if err != nil {
			return p, err
		}
		p.Sort.Direction = dir
	}

	var err error
	if p.Page, err = intParam(q, "page", p.Page); err != nil {
		return p, err
	}
	if p.PageSize, err = intParam(q, "page_size", p.PageSize); err != nil {
		return p, err
	}

	return p.Normalize(), nil
}

func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func intParam(q url.Values, key string, def int) (int, error) {
	s := q.Get(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: must be an integer", key, s)
	}
	return n, nil
}
