package report

import (
	"strconv"
	"time"

	"github.com/nao1215/listingscan/internal/model"
	"github.com/nao1215/listingscan/internal/normalize"
)

const (
	timeLayout        = "2006-01-02 15:04:05 MST"
	durationPrecision = time.Millisecond
)

// Column headers of the tabular exports, in output order.
var (
	Earth911Columns = []string{"Business_Name", "last_update_date", "street_address", "materials_accepted"}
	BestBuyColumns  = []string{"store_number", "store_name", "address", "hours", "distance", "phone", "store_details_link"}
	genericColumns  = []string{"identifier", "name", "address", "hours", "distance", "phone", "detail_link", "last_update_date", "materials", "source_url"}
)

// centerRow is the structured form of a recycling center.
type centerRow struct {
	BusinessName      string   `json:"Business_Name"`
	LastUpdateDate    string   `json:"last_update_date"`
	StreetAddress     string   `json:"street_address"`
	MaterialsAccepted []string `json:"materials_accepted"`
}

// storeRow is the structured form of a store.
type storeRow struct {
	StoreNumber      int    `json:"store_number"`
	StoreName        string `json:"store_name"`
	Address          string `json:"address"`
	Hours            string `json:"hours"`
	Distance         string `json:"distance"`
	Phone            string `json:"phone"`
	StoreDetailsLink string `json:"store_details_link"`
}

// Columns returns the tabular header for site.
func Columns(site model.Site) []string {
	switch site {
	case model.SiteEarth911:
		return Earth911Columns
	case model.SiteBestBuy:
		return BestBuyColumns
	default:
		return genericColumns
	}
}

// structuredRows maps records to the per-site JSON objects. Materials are
// kept as arrays and never encode as null.
func structuredRows(site model.Site, records []model.Record) any {
	switch site {
	case model.SiteEarth911:
		rows := make([]centerRow, 0, len(records))
		for _, r := range records {
			rows = append(rows, centerRow{
				BusinessName:      r.Name,
				LastUpdateDate:    r.LastUpdateDate,
				StreetAddress:     r.Address,
				MaterialsAccepted: nonNil(r.Materials),
			})
		}
		return rows
	case model.SiteBestBuy:
		rows := make([]storeRow, 0, len(records))
		for _, r := range records {
			rows = append(rows, storeRow{
				StoreNumber:      r.Identifier,
				StoreName:        r.Name,
				Address:          r.Address,
				Hours:            r.Hours,
				Distance:         r.Distance,
				Phone:            r.Phone,
				StoreDetailsLink: r.DetailLink,
			})
		}
		return rows
	default:
		return append(make([]model.Record, 0, len(records)), records...)
	}
}

// tabularRow flattens a record into the column order of Columns(site).
func tabularRow(site model.Site, r model.Record) []string {
	switch site {
	case model.SiteEarth911:
		return []string{r.Name, r.LastUpdateDate, r.Address, normalize.JoinList(r.Materials)}
	case model.SiteBestBuy:
		return []string{strconv.Itoa(r.Identifier), r.Name, r.Address, r.Hours, r.Distance, r.Phone, r.DetailLink}
	default:
		return []string{
			strconv.Itoa(r.Identifier), r.Name, r.Address, r.Hours, r.Distance, r.Phone,
			r.DetailLink, r.LastUpdateDate, normalize.JoinList(r.Materials), r.SourceURL,
		}
	}
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
