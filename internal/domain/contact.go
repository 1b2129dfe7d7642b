package domain

// ContactMessage is a contact-form submission forwarded to the portfolio owner by mail.
type ContactMessage struct {
	FirstName   string `json:"firstName"   binding:"required"`
	LastName    string `json:"lastName"    binding:"required"`
	Email       string `json:"email"       binding:"required"`
	PhoneNumber string `json:"phoneNumber" binding:"required"`
	Description string `json:"description" binding:"required"`
}
