package handlers

import (
	"sort"

	"github.com/magickw/ShopSmartly-sub000/internal/models"
	"github.com/magickw/ShopSmartly-sub000/internal/util"
)

// sortPricesAscending orders stored prices cheapest first; rows whose price
// string cannot be parsed sort to the end
func sortPricesAscending(prices []models.Price) {
	sort.SliceStable(prices, func(i, j int) bool {
		pi, erri := util.ParsePrice(prices[i].Price)
		pj, errj := util.ParsePrice(prices[j].Price)
		if erri != nil {
			return false
		}
		if errj != nil {
			return true
		}
		return pi < pj
	})
}
