/*
Package errs provides custom error types and application-level error code constants.

These error codes are used to clearly identify specific business or system errors
both internally within the server and in communication with clients.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request header Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body JSON format is incorrect (e.g., syntax error).
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates that the request body contained extra content after valid JSON data.
	ErrExtraContentInBody = 1004

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1005
)

// 2xxx: Buddy List and Messaging Errors
const (
	// ErrBuddyNotFound indicates that the referenced user is not on the caller's buddy list.
	ErrBuddyNotFound = 2101

	// ErrBuddyAlreadyAdded indicates the screen name is already on the caller's buddy list.
	ErrBuddyAlreadyAdded = 2102

	// ErrCannotBuddySelf indicates an attempt to add one's own screen name as a buddy.
	ErrCannotBuddySelf = 2103

	// ErrRecipientNotFound indicates that the message recipient does not exist.
	ErrRecipientNotFound = 2201

	// ErrMessageContentTooLong indicates that the message content exceeded the maximum length limit.
	ErrMessageContentTooLong = 2202

	// ErrMessageEmpty indicates a message submission with no content and no image.
	ErrMessageEmpty = 2203

	// ErrInvalidStatus indicates an unrecognized presence status value.
	ErrInvalidStatus = 2301

	// ErrFileSizeTooLarge indicates the uploaded image exceeds the size limit.
	ErrFileSizeTooLarge = 2401

	// ErrFileTypeInvalid indicates the uploaded image has a disallowed type or extension.
	ErrFileTypeInvalid = 2402
)

// 3xxx: Account, Session, and Security Errors
const (
	// ErrAlreadyLoggedIn indicates the caller already holds a valid identity token.
	ErrAlreadyLoggedIn = 3001

	// ErrInvalidScreenName indicates the screen name failed format validation.
	ErrInvalidScreenName = 3002

	// ErrInvalidPassword indicates the password failed length validation.
	ErrInvalidPassword = 3003

	// ErrScreenNameTaken indicates the screen name is already registered.
	ErrScreenNameTaken = 3004

	// ErrInvalidCredentials indicates a failed screen name / password combination.
	ErrInvalidCredentials = 3005

	// ErrUserNotFound indicates the referenced account does not exist.
	ErrUserNotFound = 3006

	// ErrOldPasswordInvalid indicates the current password check failed during a password change.
	ErrOldPasswordInvalid = 3007

	// ErrUnauthorized indicates the request lacks a valid identity token.
	ErrUnauthorized = 3008
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000

	// ErrMessageStoreFailed indicates the durable message write failed.
	// Message durability is the one hard guarantee the server offers, so this
	// is surfaced to the sender instead of being absorbed.
	ErrMessageStoreFailed = 5001

	// ErrFileStorageFailed indicates a presigned URL could not be generated.
	ErrFileStorageFailed = 5002
)
