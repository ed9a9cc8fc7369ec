package jwt

import "github.com/golang-jwt/jwt"

// Payload defines the structure of the JSON Web Token (JWT) claims for the
// messenger API. It includes standard claims required by the JWT specification
// and custom claims necessary for identifying the signed-on user.
type Payload struct {
	// StandardClaims embeds the necessary JWT standard fields such as Exp (Expiration),
	// Iat (Issued At), and Iss (Issuer). These are crucial for token validity checks.
	jwt.StandardClaims `json:"standard_claims"`

	// UserID is the numeric account identifier of the signed-on user.
	UserID int64 `json:"uid"`

	// ScreenName is the unique handle of the signed-on user, carried in the
	// token so request logging and display fields do not need a DB round trip.
	ScreenName string `json:"screen_name"`
}
