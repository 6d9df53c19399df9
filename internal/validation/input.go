package validation

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/secondhand/marketplace-backend/internal/models"
)

// Константы валидации
const (
	MinUsernameLength      = 3
	MaxUsernameLength      = 30
	MaxFullNameLength      = 100
	MaxPhoneLength         = 20
	MinListingNameLength   = 3
	MaxListingNameLength   = 120
	MaxListingDescLength   = 5000
	MaxLocationLength      = 100
	MaxPrice               = 9999999999.99 // NUMERIC(12, 2)
	MinRating              = 1
	MaxRating              = 5
	MaxReviewCommentLength = 2000
	MaxSearchQueryLength   = 100
)

var (
	emailLocalRegex  = regexp.MustCompile(`^[a-z0-9._+-]+$`)
	emailDomainRegex = regexp.MustCompile(`^[a-z0-9.-]+\.[a-z]{2,}$`)
	usernameRegex    = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	phoneRegex       = regexp.MustCompile(`^\+?[0-9 ()-]{6,20}$`)
)

// ValidateLength проверяет длину строки.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return fmt.Errorf("%s must be at least %d characters", fieldName, min)
	}
	if max > 0 && length > max {
		return fmt.Errorf("%s must be at most %d characters", fieldName, max)
	}
	return nil
}

// ValidateEmail проверяет формат email.
func ValidateEmail(email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return fmt.Errorf("email is required")
	}

	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return fmt.Errorf("invalid email format")
	}

	localPart, domainPart := parts[0], parts[1]
	if len(localPart) == 0 || len(localPart) > 64 {
		return fmt.Errorf("invalid email format")
	}
	if len(domainPart) == 0 || len(domainPart) > 255 {
		return fmt.Errorf("invalid email format")
	}
	if !emailLocalRegex.MatchString(localPart) || !emailDomainRegex.MatchString(domainPart) {
		return fmt.Errorf("invalid email format")
	}

	return nil
}

// ValidateNonEmpty проверяет, что строка не пустая.
func ValidateNonEmpty(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s is required", fieldName)
	}
	return nil
}

// ValidateUsername проверяет имя пользователя.
func ValidateUsername(username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return fmt.Errorf("username is required")
	}

	if err := ValidateLength("username", username, MinUsernameLength, MaxUsernameLength); err != nil {
		return err
	}

	// только буквы, цифры и подчеркивание
	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("username may contain only letters, digits and underscores")
	}

	if unicode.IsDigit(rune(username[0])) {
		return fmt.Errorf("username cannot start with a digit")
	}

	return nil
}

// ValidateFullName проверяет необязательное полное имя.
func ValidateFullName(fullName *string) error {
	if fullName == nil {
		return nil
	}
	return ValidateLength("full name", strings.TrimSpace(*fullName), 0, MaxFullNameLength)
}

// ValidatePhone проверяет необязательный номер телефона.
func ValidatePhone(phone *string) error {
	if phone == nil || strings.TrimSpace(*phone) == "" {
		return nil
	}
	if !phoneRegex.MatchString(strings.TrimSpace(*phone)) {
		return fmt.Errorf("invalid phone number")
	}
	return nil
}

// ValidatePrice проверяет, что цена конечное положительное число.
func ValidatePrice(price float64) error {
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return fmt.Errorf("Price must be a positive number")
	}
	if price > MaxPrice {
		return fmt.Errorf("Price must not exceed %.2f", MaxPrice)
	}
	return nil
}

// ValidateCondition проверяет состояние товара.
func ValidateCondition(condition string) error {
	if !models.IsValidCondition(condition) {
		return fmt.Errorf("condition must be one of: %s, %s, %s, %s, %s",
			models.ConditionBrandNew, models.ConditionLikeNew, models.ConditionSlightlyUsed,
			models.ConditionWellUsed, models.ConditionHeavilyUsed)
	}
	return nil
}

// ValidateListingName проверяет название объявления.
func ValidateListingName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("name is required")
	}
	return ValidateLength("name", name, MinListingNameLength, MaxListingNameLength)
}

// ValidateListingDescription проверяет описание объявления.
func ValidateListingDescription(description string) error {
	return ValidateLength("description", strings.TrimSpace(description), 0, MaxListingDescLength)
}

// ValidateLocation проверяет местоположение.
func ValidateLocation(location string) error {
	return ValidateLength("location", strings.TrimSpace(location), 0, MaxLocationLength)
}

// ValidateListingFields проверяет все поля нового объявления.
func ValidateListingFields(name string, price float64, condition, description, location string) error {
	if err := ValidateListingName(name); err != nil {
		return err
	}
	if err := ValidatePrice(price); err != nil {
		return err
	}
	if err := ValidateCondition(condition); err != nil {
		return err
	}
	if err := ValidateListingDescription(description); err != nil {
		return err
	}
	return ValidateLocation(location)
}

// ValidateProductUpdate проверяет только заданные поля.
func ValidateProductUpdate(u models.ProductUpdate) error {
	if u.Name != nil {
		if err := ValidateListingName(*u.Name); err != nil {
			return err
		}
	}
	if u.Price != nil {
		if err := ValidatePrice(*u.Price); err != nil {
			return err
		}
	}
	if u.Condition != nil {
		if err := ValidateCondition(*u.Condition); err != nil {
			return err
		}
	}
	if u.Description != nil {
		if err := ValidateListingDescription(*u.Description); err != nil {
			return err
		}
	}
	if u.Location != nil {
		if err := ValidateLocation(*u.Location); err != nil {
			return err
		}
	}
	return nil
}

// ValidateRating проверяет оценку отзыва.
func ValidateRating(rating int) error {
	if rating < MinRating || rating > MaxRating {
		return fmt.Errorf("Rating must be an integer between %d and %d", MinRating, MaxRating)
	}
	return nil
}

// ValidateReviewComment проверяет текст отзыва.
func ValidateReviewComment(comment *string) error {
	if comment == nil {
		return nil
	}
	return ValidateLength("comment", strings.TrimSpace(*comment), 0, MaxReviewCommentLength)
}
