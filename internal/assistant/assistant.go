package assistant

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/magickw/ShopSmartly-sub000/internal/models"
	"github.com/magickw/ShopSmartly-sub000/internal/util"
)

// Intent is the classified purpose of a user message
type Intent string

const (
	IntentGreeting     Intent = "greeting"
	IntentPrice        Intent = "price"
	IntentEcoScore     Intent = "eco_score"
	IntentShoppingList Intent = "shopping_list"
	IntentScanStats    Intent = "scan_stats"
	IntentHelp         Intent = "help"
)

// Service answers shopping questions from data already in the catalog.
// Intents map to database queries; replies are composed from real rows.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "of": true, "for": true,
	"is": true, "on": true, "my": true, "me": true, "much": true,
	"how": true, "what": true, "whats": true, "price": true,
	"cost": true, "does": true, "cheapest": true, "where": true,
	"can": true, "i": true, "buy": true, "eco": true, "score": true,
	"friendly": true, "sustainable": true, "to": true, "in": true,
}

// Classify picks an intent from keyword rules. Order matters: eco terms
// beat price terms so "is the eco score worth the price" reads as eco.
func Classify(message string) Intent {
	m := strings.ToLower(strings.TrimSpace(message))
	switch {
	case m == "":
		return IntentHelp
	case containsAny(m, "hello", "hi ", "hey", "good morning", "good evening") || m == "hi":
		return IntentGreeting
	case containsAny(m, "eco", "sustainab", "environment", "green", "carbon"):
		return IntentEcoScore
	case containsAny(m, "price", "cost", "cheap", "how much", "deal", "afford"):
		return IntentPrice
	case containsAny(m, "shopping list", "my list", "grocery list", "to buy"):
		return IntentShoppingList
	case containsAny(m, "scan", "scanned", "history"):
		return IntentScanStats
	default:
		return IntentHelp
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// ExtractSubject strips question scaffolding to leave the product terms:
// "how much does organic peanut butter cost" -> "organic peanut butter"
func ExtractSubject(message string) string {
	cleaned := strings.ToLower(message)
	for _, r := range []string{"?", "!", ".", ","} {
		cleaned = strings.ReplaceAll(cleaned, r, " ")
	}
	var kept []string
	for _, word := range strings.Fields(cleaned) {
		if !stopWords[word] {
			kept = append(kept, word)
		}
	}
	return strings.Join(kept, " ")
}

// Reply answers a message for a user. It never returns an error for "I don't
// know" cases - those get a helpful fallback string instead.
func (s *Service) Reply(userID, message string) (string, error) {
	intent := Classify(message)
	switch intent {
	case IntentGreeting:
		return "Hi! Ask me about product prices, eco scores, or your shopping list.", nil
	case IntentPrice:
		return s.answerPrice(message)
	case IntentEcoScore:
		return s.answerEcoScore(message)
	case IntentShoppingList:
		return s.answerShoppingList(userID)
	case IntentScanStats:
		return s.answerScanStats(userID)
	default:
		return "I can help you compare prices, check eco scores, and review your shopping list. Try asking \"how much is oat milk?\"", nil
	}
}

func (s *Service) findProduct(subject string) (*models.Product, error) {
	if subject == "" {
		return nil, gorm.ErrRecordNotFound
	}
	var product models.Product
	err := s.db.Preload("Prices").Preload("Prices.Retailer").
		Where("LOWER(name) LIKE ?", "%"+subject+"%").
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (s *Service) answerPrice(message string) (string, error) {
	subject := ExtractSubject(message)
	product, err := s.findProduct(subject)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Sprintf("I couldn't find %q in the catalog yet. Try scanning its barcode first.", subject), nil
		}
		return "", err
	}
	if len(product.Prices) == 0 {
		return fmt.Sprintf("I know %s but have no prices for it yet.", product.Name), nil
	}

	best := product.Prices[0]
	bestVal, bestErr := util.ParsePrice(best.Price)
	for _, p := range product.Prices[1:] {
		val, err := util.ParsePrice(p.Price)
		if err != nil {
			continue
		}
		if bestErr != nil || val < bestVal {
			best, bestVal, bestErr = p, val, nil
		}
	}
	retailer := best.Retailer.Name
	if retailer == "" {
		retailer = "one retailer"
	}
	return fmt.Sprintf("The best price for %s is %s %s at %s.", product.Name, best.Price, best.Currency, retailer), nil
}

func (s *Service) answerEcoScore(message string) (string, error) {
	subject := ExtractSubject(message)
	product, err := s.findProduct(subject)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Sprintf("I couldn't find %q in the catalog yet. Try scanning its barcode first.", subject), nil
		}
		return "", err
	}
	if product.EcoScore == nil {
		return fmt.Sprintf("No eco score is available for %s yet.", product.Name), nil
	}

	score := *product.EcoScore
	var verdict string
	switch {
	case score >= 80:
		verdict = "an excellent"
	case score >= 60:
		verdict = "a good"
	case score >= 40:
		verdict = "a moderate"
	default:
		verdict = "a poor"
	}
	return fmt.Sprintf("%s has an eco score of %d out of 100 - %s environmental rating.", product.Name, score, verdict), nil
}

func (s *Service) answerShoppingList(userID string) (string, error) {
	var pending int64
	err := s.db.Model(&models.ShoppingListItem{}).
		Where("user_id = ? AND completed = ?", userID, false).
		Count(&pending).Error
	if err != nil {
		return "", err
	}
	if pending == 0 {
		return "Your shopping list is empty. Scan a product or add items to get started.", nil
	}
	return fmt.Sprintf("You have %d item(s) left on your shopping list.", pending), nil
}

func (s *Service) answerScanStats(userID string) (string, error) {
	var total int64
	err := s.db.Model(&models.ScanHistory{}).
		Where("user_id = ?", userID).
		Count(&total).Error
	if err != nil {
		return "", err
	}
	if total == 0 {
		return "You haven't scanned anything yet. Point the scanner at a barcode to get started.", nil
	}
	return fmt.Sprintf("You've scanned %d product(s) so far. Check the history tab for details.", total), nil
}
