package utils

// Application constants
const (
	// Application name
	AppName = "MANSATASK"

	// Default port
	DefaultPort = "8080"

	// Maximum file size for uploads (5MB)
	MaxFileSize = 5 * 1024 * 1024

	// Default pagination limit
	DefaultPaginationLimit = 10

	// Maximum pagination limit
	MaxPaginationLimit = 100

	// Minimum password length
	MinPasswordLength = 8

	// Maximum password length
	MaxPasswordLength = 72

	// Minimum name length
	MinNameLength = 2

	// Maximum name length
	MaxNameLength = 100

	// Maximum payment link title length
	MaxTitleLength = 120

	// Default currency for products and links
	DefaultCurrency = "XOF"

	// Header carrying the client-supplied idempotency key
	IdempotencyHeader = "Idempotency-Key"

	// Header carrying the webhook HMAC
	WebhookSignatureHeader = "X-Webhook-Signature"
)

// Error messages
const (
	ErrInvalidCredentials = "Invalid email or password"
	ErrInvalidToken       = "Invalid or expired token"
	ErrUnauthorized       = "Please login for access"

	ErrInvalidEmail    = "Invalid email format"
	ErrInvalidPhone    = "Invalid phone number format"
	ErrInvalidAmount   = "Amount must be greater than 0"
	ErrInvalidFileType = "Invalid file type. Allowed types: jpg, jpeg, png, gif, webp"
	ErrFileTooLarge    = "File size exceeds 5MB limit"
	ErrEmailTaken      = "Email already in use"

	ErrInternalServer     = "Internal server error"
	ErrServiceUnavailable = "Payment provider is unavailable, please try again"
)

// Success messages
const (
	MsgLoginSuccess    = "Login successful"
	MsgLogoutSuccess   = "Logout successful"
	MsgRegisterSuccess = "Registration successful"
	MsgPasswordReset   = "Password reset successful"
	MsgResetEmailSent  = "If an account exists for this email, a reset link has been sent"

	MsgCreateSuccess = "Created successfully"
	MsgUpdateSuccess = "Updated successfully"
	MsgDeleteSuccess = "Deleted successfully"
	MsgUploadSuccess = "File uploaded successfully"
)
