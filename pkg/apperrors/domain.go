package apperrors

import "net/http"

// Предопределенные доменные ошибки. Сравнение через errors.Is.

// --- Auth & Users ---

var ErrInsufficientPermissions = New(CodeForbidden, "auth", "Insufficient permissions", http.StatusForbidden)

var ErrInvalidCredentials = New(CodeInvalidCredentials, "auth", "Invalid email or password", http.StatusUnauthorized)

var ErrInvalidToken = New(CodeInvalidToken, "auth", "Invalid or expired session", http.StatusUnauthorized)

var ErrEmailNotVerified = New(CodeForbidden, "auth", "Please verify your email address", http.StatusForbidden)

var ErrEmailAlreadyExists = New(CodeAlreadyExists, "auth", "Email already registered", http.StatusConflict)

var ErrUserNotFound = New(CodeNotFound, "user", "User not found", http.StatusNotFound)

// --- OTP ---

var ErrAlreadyVerified = New(CodeAlreadyDone, "otp", "Email already verified", http.StatusBadRequest)

var ErrOTPMissing = New(CodeOTPMissing, "otp", "No OTP on file, request a new one", http.StatusBadRequest)

var ErrOTPExpired = New(CodeOTPExpired, "otp", "OTP expired", http.StatusBadRequest)

var ErrOTPInvalid = New(CodeOTPInvalid, "otp", "Invalid OTP", http.StatusBadRequest)

var ErrOTPSendFailed = New(CodeExternalServiceError, "otp", "Failed to send verification email", http.StatusInternalServerError)

// --- Incidents ---

var ErrIncidentNotFound = New(CodeNotFound, "incident", "Incident not found", http.StatusNotFound)

var ErrInvalidIncidentStatus = New(CodeInvalidStatus, "incident", "Invalid incident status", http.StatusBadRequest)

var ErrInvalidTransition = New(CodeInvalidStatus, "incident", "Status transition is not allowed", http.StatusBadRequest)

var ErrIncidentClosed = New(CodeInvalidStatus, "incident", "Incident no longer accepts allocations", http.StatusBadRequest)

// --- Allocations ---

var ErrAllocationNotFound = New(CodeNotFound, "allocation", "Allocation not found", http.StatusNotFound)

var ErrAllocationNotAssigned = New(CodeInvalidStatus, "allocation", "Allocation is not in ASSIGNED state", http.StatusBadRequest)

var ErrAllocationMismatch = New(CodeInvalidOperation, "allocation", "Allocation does not belong to this incident", http.StatusBadRequest)

var ErrInvalidAllocationTarget = New(CodeInvalidOperation, "allocation",
	"Allocated user must be a VOLUNTEER, NGO or GOVERNMENT_AGENCY", http.StatusBadRequest)

var ErrNotAllocatedUser = New(CodeForbidden, "allocation", "Only the allocated user can decide on this allocation", http.StatusForbidden)

// --- Vetting ---

var ErrNotResponder = New(CodeInvalidOperation, "vetting", "Only responder accounts can be vetted", http.StatusBadRequest)

var ErrAlreadyVetted = New(CodeInvalidStatus, "vetting", "User is already verified", http.StatusBadRequest)

var ErrNotVetted = New(CodeInvalidStatus, "vetting", "User is not verified", http.StatusBadRequest)

// --- Uploads ---

var ErrNoFiles = New(CodeValidationFailed, "upload", "No files provided", http.StatusBadRequest)

var ErrFileTooLarge = New(CodeLimitExceeded, "upload", "File size exceeds the allowed limit", http.StatusBadRequest)

var ErrInvalidFileType = New(CodeValidationFailed, "upload", "The provided file type is not allowed", http.StatusBadRequest)
