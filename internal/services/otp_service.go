package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/example/retailpulse/internal/models"
	"github.com/example/retailpulse/internal/repository"
	"github.com/example/retailpulse/internal/utils"
)

const (
	otpTTL         = 5 * time.Minute
	maxResendCount = 3
	resendWindow   = 15 * time.Minute
)

// OtpService issues and verifies the email and SMS confirmation codes.
type OtpService struct {
	store    repository.Store
	email    EmailSender
	sms      SMSSender
	now      func() time.Time
	generate func() (string, error)
}

func NewOtpService(store repository.Store, email EmailSender, sms SMSSender) *OtpService {
	return &OtpService{
		store:    store,
		email:    email,
		sms:      sms,
		now:      time.Now,
		generate: utils.GenerateNumericCode,
	}
}

// Issue creates the Otp row of a freshly registered user with both channels armed.
func (s *OtpService) Issue(ctx context.Context, user *models.User) (*models.Otp, error) {
	emailCode, err := s.generate()
	if err != nil {
		return nil, fmt.Errorf("generate email code: %w", err)
	}
	smsCode, err := s.generate()
	if err != nil {
		return nil, fmt.Errorf("generate sms code: %w", err)
	}

	now := s.now()
	otp := &models.Otp{
		UserID:         user.ID,
		Email:          user.Email,
		PhoneNumber:    user.PhoneNumber,
		EmailCode:      emailCode,
		SmsCode:        smsCode,
		EmailExpiresAt: now.Add(otpTTL),
		SmsExpiresAt:   now.Add(otpTTL),
	}
	if err := s.store.CreateOtp(ctx, otp); err != nil {
		return nil, err
	}
	return otp, nil
}

// Dispatch sends both codes. Delivery failures are logged only.
func (s *OtpService) Dispatch(ctx context.Context, otp *models.Otp) {
	s.sendEmailCode(ctx, otp)
	s.sendSmsCode(ctx, otp)
}

func (s *OtpService) sendEmailCode(ctx context.Context, otp *models.Otp) {
	if s.email == nil || otp.EmailCode == "" {
		return
	}
	body := "Please confirm your email by entering this security code " + otp.EmailCode
	if err := s.email.SendEmail(ctx, otp.Email, "Confirm your email", body); err != nil {
		log.Printf("[Otp] failed to send email code to %s: %v", otp.Email, err)
	}
}

func (s *OtpService) sendSmsCode(ctx context.Context, otp *models.Otp) {
	if s.sms == nil || otp.SmsCode == "" {
		return
	}
	if err := s.sms.SendSMS(ctx, otp.PhoneNumber, "Your OTP code is: "+otp.SmsCode); err != nil {
		log.Printf("[Otp] failed to send sms code to %s: %v", otp.PhoneNumber, err)
	}
}

// normalizeIdentifier matches the form Register stores emails and phone numbers in.
func normalizeIdentifier(identifier string, isPhone bool) string {
	if isPhone {
		return strings.TrimSpace(identifier)
	}
	return normalizeEmail(identifier)
}

func codeMatches(stored, given string) bool {
	if stored == "" || given == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(given)) == 1
}

// ConfirmEmail marks the email channel confirmed when code is current.
func (s *OtpService) ConfirmEmail(ctx context.Context, email, code string) error {
	email = normalizeEmail(email)
	return s.store.WithTransaction(ctx, func(ctx context.Context) error {
		otp, err := s.store.GetOtpByEmail(ctx, email)
		if err != nil {
			return notFoundOr(err, "no confirmation pending for %s", email)
		}
		if !codeMatches(otp.EmailCode, code) || s.now().After(otp.EmailExpiresAt) {
			return newError(KindInvalidOrExpiredConfirmationCode, "invalid or expired confirmation code")
		}
		otp.EmailConfirmed = true
		return s.markVerified(ctx, otp)
	})
}

// ConfirmPhone marks the SMS channel confirmed when code is current.
func (s *OtpService) ConfirmPhone(ctx context.Context, phone, code string) error {
	phone = strings.TrimSpace(phone)
	return s.store.WithTransaction(ctx, func(ctx context.Context) error {
		otp, err := s.store.GetOtpByPhone(ctx, phone)
		if err != nil {
			return notFoundOr(err, "no confirmation pending for %s", phone)
		}
		if !codeMatches(otp.SmsCode, code) || s.now().After(otp.SmsExpiresAt) {
			return newError(KindInvalidOrExpiredConfirmationCode, "invalid or expired OTP code")
		}
		otp.PhoneConfirmed = true
		return s.markVerified(ctx, otp)
	})
}

func (s *OtpService) markVerified(ctx context.Context, otp *models.Otp) error {
	if err := s.store.UpdateOtp(ctx, otp); err != nil {
		return err
	}
	user, err := s.store.GetUserByID(ctx, otp.UserID)
	if err != nil {
		return notFoundOr(err, "user not found")
	}
	user.OtpVerified = otp.EmailConfirmed || otp.PhoneConfirmed
	return s.store.UpdateUser(ctx, user)
}

// Resend regenerates the code of one channel, allowing maxResendCount resends
// per resendWindow, and delivers it.
func (s *OtpService) Resend(ctx context.Context, identifier string, isPhone bool) error {
	identifier = normalizeIdentifier(identifier, isPhone)
	var otp *models.Otp
	err := s.store.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		if isPhone {
			otp, err = s.store.GetOtpByPhone(ctx, identifier)
		} else {
			otp, err = s.store.GetOtpByEmail(ctx, identifier)
		}
		if errors.Is(err, repository.ErrNotFound) {
			otp, err = s.reissue(ctx, identifier, isPhone)
			return err
		}
		if err != nil {
			return err
		}

		now := s.now()
		if otp.LastResendAt != nil && otp.LastResendAt.After(now.Add(-resendWindow)) {
			if otp.ResendCount >= maxResendCount {
				return newError(KindResendLimitExceeded, "resend limit exceeded, please try again later")
			}
		} else {
			otp.ResendCount = 0
		}
		otp.ResendCount++
		otp.LastResendAt = &now

		if err := s.arm(otp, isPhone, now); err != nil {
			return err
		}
		return s.store.UpdateOtp(ctx, otp)
	})
	if err != nil {
		return err
	}

	if isPhone {
		s.sendSmsCode(ctx, otp)
	} else {
		s.sendEmailCode(ctx, otp)
	}
	return nil
}

// reissue recreates the Otp row of an unverified user whose row was swept.
func (s *OtpService) reissue(ctx context.Context, identifier string, isPhone bool) (*models.Otp, error) {
	var (
		user *models.User
		err  error
	)
	if isPhone {
		user, err = s.store.GetUserByPhone(ctx, identifier)
	} else {
		user, err = s.store.GetUserByEmail(ctx, identifier)
	}
	if err != nil {
		return nil, notFoundOr(err, "no confirmation pending for %s", identifier)
	}
	if user.OtpVerified {
		return nil, newError(KindResourceNotFound, "no confirmation pending for %s", identifier)
	}

	// The channel not armed below starts out already expired.
	now := s.now()
	otp := &models.Otp{
		UserID:         user.ID,
		Email:          user.Email,
		PhoneNumber:    user.PhoneNumber,
		EmailExpiresAt: now,
		SmsExpiresAt:   now,
		ResendCount:    1,
		LastResendAt:   &now,
	}
	if err := s.arm(otp, isPhone, now); err != nil {
		return nil, err
	}
	if err := s.store.CreateOtp(ctx, otp); err != nil {
		return nil, err
	}
	return otp, nil
}

func (s *OtpService) arm(otp *models.Otp, isPhone bool, now time.Time) error {
	code, err := s.generate()
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}
	if isPhone {
		otp.SmsCode = code
		otp.SmsExpiresAt = now.Add(otpTTL)
	} else {
		otp.EmailCode = code
		otp.EmailExpiresAt = now.Add(otpTTL)
	}
	return nil
}
