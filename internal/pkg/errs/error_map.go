/*
Package errs provides custom error types and application-level error code constants.

This file defines the map from error codes to the CustomError struct, used to standardize
HTTP responses and internal error handling.
*/
package errs

import "net/http"

// errorMap stores the detailed CustomError struct corresponding to every application error code.
// The key is the error code (int), and the value contains the user message and HTTP status code.
var errorMap = map[int]CustomError{
	// 1xxx: General Request Handling Errors
	ErrInvalidParams:        {Code: ErrInvalidParams, Message: "Invalid request parameters."},
	ErrUnsupportedMediaType: {Code: ErrUnsupportedMediaType, Message: "Unsupported request format."},
	ErrInvalidJSONFormat:    {Code: ErrInvalidJSONFormat, Message: "Unsupported request format."},
	ErrExtraContentInBody:   {Code: ErrExtraContentInBody, Message: "Request contains unexpected data."},
	ErrRateLimitExceeded:    {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},

	// 2xxx: Buddy List and Messaging Errors
	ErrBuddyNotFound:         {Code: ErrBuddyNotFound, Message: "That user is not on your buddy list."},
	ErrBuddyAlreadyAdded:     {Code: ErrBuddyAlreadyAdded, Message: "That user is already on your buddy list."},
	ErrCannotBuddySelf:       {Code: ErrCannotBuddySelf, Message: "You cannot add yourself as a buddy."},
	ErrRecipientNotFound:     {Code: ErrRecipientNotFound, Message: "That screen name does not exist."},
	ErrMessageContentTooLong: {Code: ErrMessageContentTooLong, Message: "Message is too long."},
	ErrMessageEmpty:          {Code: ErrMessageEmpty, Message: "Message is empty."},
	ErrInvalidStatus:         {Code: ErrInvalidStatus, Message: "Invalid status."},
	ErrFileSizeTooLarge:      {Code: ErrFileSizeTooLarge, Message: "Image is too large."},
	ErrFileTypeInvalid:       {Code: ErrFileTypeInvalid, Message: "Unsupported image type."},

	// 3xxx: Account, Session, and Security Errors
	ErrAlreadyLoggedIn:    {Code: ErrAlreadyLoggedIn, Message: "You are already signed on."},
	ErrInvalidScreenName:  {Code: ErrInvalidScreenName, Message: "Invalid screen name."},
	ErrInvalidPassword:    {Code: ErrInvalidPassword, Message: "Invalid password."},
	ErrScreenNameTaken:    {Code: ErrScreenNameTaken, Message: "Screen name is already taken."},
	ErrInvalidCredentials: {Code: ErrInvalidCredentials, Message: "Incorrect screen name or password."},
	ErrUserNotFound:       {Code: ErrUserNotFound, Message: "Account not found."},
	ErrOldPasswordInvalid: {Code: ErrOldPasswordInvalid, Message: "Current password is incorrect."},
	ErrUnauthorized:       {Code: ErrUnauthorized, Message: "Please sign on to continue.", Status: http.StatusUnauthorized},

	// 5xxx: Internal System Errors
	ErrUnknown:            {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
	ErrMessageStoreFailed: {Code: ErrMessageStoreFailed, Message: "Your message could not be saved. Please try again.", Status: http.StatusInternalServerError},
	ErrFileStorageFailed:  {Code: ErrFileStorageFailed, Message: "Image upload failed. Please try again."},
}
