// Package identity talks to the Cognito user pool on behalf of the dashboard.
package identity

import (
	"context"
	"errors"
	"strings"

	"github.com/kylejryan/healthcare-claims-dashboard/internal/validate"

	"github.com/aws/aws-sdk-go-v2/aws"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/golang-jwt/jwt/v5"
)

// CognitoAPI is the subset of the Cognito client the gateway uses.
type CognitoAPI interface {
	InitiateAuth(ctx context.Context, params *cip.InitiateAuthInput, optFns ...func(*cip.Options)) (*cip.InitiateAuthOutput, error)
	SignUp(ctx context.Context, params *cip.SignUpInput, optFns ...func(*cip.Options)) (*cip.SignUpOutput, error)
	ConfirmSignUp(ctx context.Context, params *cip.ConfirmSignUpInput, optFns ...func(*cip.Options)) (*cip.ConfirmSignUpOutput, error)
	ResendConfirmationCode(ctx context.Context, params *cip.ResendConfirmationCodeInput, optFns ...func(*cip.Options)) (*cip.ResendConfirmationCodeOutput, error)
}

// Identity is an authenticated user pool member.
type Identity struct {
	Email       string
	Subject     string
	AccessToken string
}

// Gateway holds one Cognito client built at startup.
type Gateway struct {
	api      CognitoAPI
	clientID string
}

// NewGateway wires a Cognito client and app client id.
func NewGateway(api CognitoAPI, clientID string) *Gateway {
	return &Gateway{api: api, clientID: clientID}
}

// Authenticate runs USER_PASSWORD_AUTH. Missing credentials fail without a
// provider call.
func (g *Gateway) Authenticate(ctx context.Context, email, password string) (Identity, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return Identity{}, fail(ErrInvalidCredentials, "Invalid email or password", nil)
	}

	out, err := g.api.InitiateAuth(ctx, &cip.InitiateAuthInput{
		AuthFlow: types.AuthFlowTypeUserPasswordAuth,
		ClientId: aws.String(g.clientID),
		AuthParameters: map[string]string{
			"USERNAME": email,
			"PASSWORD": password,
		},
	})
	if err != nil {
		return Identity{}, translate(opLogin, err)
	}
	if out.AuthenticationResult == nil {
		// NEW_PASSWORD_REQUIRED and MFA challenges are not supported here.
		return Identity{}, fail(ErrInvalidCredentials, "Additional sign-in challenge required", errors.New(string(out.ChallengeName)))
	}

	id := Identity{Email: email, AccessToken: aws.ToString(out.AuthenticationResult.AccessToken)}
	id.Subject = subjectOf(aws.ToString(out.AuthenticationResult.IdToken))
	return id, nil
}

// Register signs a new user up with email and name attributes.
func (g *Gateway) Register(ctx context.Context, name, email, password string) error {
	email = normalizeEmail(email)
	if err := validate.Email(email); err != nil {
		return fail(ErrInvalidEmail, "Invalid email format", nil)
	}
	if err := validate.Password(password); err != nil {
		return fail(ErrWeakPassword, "Password must be at least 8 characters", nil)
	}

	attrs := []types.AttributeType{{Name: aws.String("email"), Value: aws.String(email)}}
	if name = strings.TrimSpace(name); name != "" {
		attrs = append(attrs, types.AttributeType{Name: aws.String("name"), Value: aws.String(name)})
	}
	_, err := g.api.SignUp(ctx, &cip.SignUpInput{
		ClientId:       aws.String(g.clientID),
		Username:       aws.String(email),
		Password:       aws.String(password),
		UserAttributes: attrs,
	})
	if err != nil {
		return translate(opRegister, err)
	}
	return nil
}

// Confirm submits the emailed verification code.
func (g *Gateway) Confirm(ctx context.Context, email, code string) error {
	email = normalizeEmail(email)
	if email == "" {
		return fail(ErrInvalidEmail, "Email is required", nil)
	}
	if err := validate.VerificationCode(code); err != nil {
		return fail(ErrInvalidCode, "Verification code must be 6 digits", nil)
	}
	_, err := g.api.ConfirmSignUp(ctx, &cip.ConfirmSignUpInput{
		ClientId:         aws.String(g.clientID),
		Username:         aws.String(email),
		ConfirmationCode: aws.String(strings.TrimSpace(code)),
	})
	if err != nil {
		return translate(opConfirm, err)
	}
	return nil
}

// ResendCode asks the provider to email a fresh verification code.
func (g *Gateway) ResendCode(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return fail(ErrInvalidEmail, "Email is required", nil)
	}
	_, err := g.api.ResendConfirmationCode(ctx, &cip.ResendConfirmationCodeInput{
		ClientId: aws.String(g.clientID),
		Username: aws.String(email),
	})
	if err != nil {
		return translate(opResend, err)
	}
	return nil
}

// normalizeEmail only trims; the address is the owner key on stored claims
// and must match what the analysis backend recorded.
func normalizeEmail(s string) string {
	return strings.TrimSpace(s)
}

// subjectOf reads sub from the provider's id token. The token came straight
// from the provider over TLS, so its signature is not re-checked.
func subjectOf(idToken string) string {
	if idToken == "" {
		return ""
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, claims); err != nil {
		return ""
	}
	sub, _ := claims["sub"].(string)
	return sub
}
