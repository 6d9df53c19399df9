package models

// Condition константы состояния товара.
const (
	ConditionBrandNew     = "Brand New"
	ConditionLikeNew      = "Like New"
	ConditionSlightlyUsed = "Slightly Used"
	ConditionWellUsed     = "Well Used"
	ConditionHeavilyUsed  = "Heavily Used"
)

// OfferStatus константы статусов предложений.
const (
	OfferStatusPending  = "Pending"
	OfferStatusAccepted = "Accepted"
	OfferStatusRejected = "Rejected"
)

// Notification события.
const (
	EventOfferReceived  = "offer_received"
	EventOfferAccepted  = "offer_accepted"
	EventOfferRejected  = "offer_rejected"
	EventReviewReceived = "review_received"
	EventSaleCompleted  = "sale_completed"
)

// ValidConditions список допустимых состояний товара.
var ValidConditions = map[string]struct{}{
	ConditionBrandNew:     {},
	ConditionLikeNew:      {},
	ConditionSlightlyUsed: {},
	ConditionWellUsed:     {},
	ConditionHeavilyUsed:  {},
}

// ResolvedOfferStatuses статусы, в которые продавец может перевести предложение.
var ResolvedOfferStatuses = map[string]struct{}{
	OfferStatusAccepted: {},
	OfferStatusRejected: {},
}

// IsValidCondition проверяет значение состояния товара.
func IsValidCondition(condition string) bool {
	_, ok := ValidConditions[condition]
	return ok
}

// IsResolvedOfferStatus проверяет, что статус является конечным.
func IsResolvedOfferStatus(status string) bool {
	_, ok := ResolvedOfferStatuses[status]
	return ok
}
