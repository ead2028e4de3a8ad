package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/example/retailpulse/internal/repository"
)

type otpFixture struct {
	store *repository.MemoryStore
	email *fakeEmail
	sms   *fakeSMS
	otp   *OtpService
	clock time.Time
	codes int
}

func newOtpFixture() *otpFixture {
	f := &otpFixture{
		store: repository.NewMemoryStore(),
		email: &fakeEmail{},
		sms:   &fakeSMS{},
		clock: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.otp = NewOtpService(f.store, f.email, f.sms)
	f.otp.now = func() time.Time { return f.clock }
	f.otp.generate = func() (string, error) {
		f.codes++
		return fmt.Sprintf("%06d", f.codes), nil
	}
	return f
}

func (f *otpFixture) advance(d time.Duration) { f.clock = f.clock.Add(d) }

func TestIssueArmsBothChannels(t *testing.T) {
	f := newOtpFixture()
	user := createUser(t, f.store, "ann@example.com", "+10000000001", false)

	otp, err := f.otp.Issue(context.Background(), user)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if otp.EmailCode == "" || otp.SmsCode == "" || otp.EmailCode == otp.SmsCode {
		t.Fatalf("expected two distinct codes, got %q and %q", otp.EmailCode, otp.SmsCode)
	}
	if want := f.clock.Add(otpTTL); !otp.EmailExpiresAt.Equal(want) || !otp.SmsExpiresAt.Equal(want) {
		t.Fatalf("unexpected expiry %v / %v", otp.EmailExpiresAt, otp.SmsExpiresAt)
	}

	f.otp.Dispatch(context.Background(), otp)
	if got := f.email.last(); got.To != user.Email || got.Body != "Please confirm your email by entering this security code "+otp.EmailCode {
		t.Fatalf("unexpected email %+v", got)
	}
	if len(f.sms.sent) != 1 || f.sms.sent[0].Body != "Your OTP code is: "+otp.SmsCode {
		t.Fatalf("unexpected sms %+v", f.sms.sent)
	}
}

func TestConfirmEmailVerifiesUser(t *testing.T) {
	f := newOtpFixture()
	ctx := context.Background()
	user := createUser(t, f.store, "ann@example.com", "+10000000001", false)
	otp, err := f.otp.Issue(ctx, user)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	err = f.otp.ConfirmEmail(ctx, user.Email, "999999")
	assertKind(t, err, ErrInvalidOrExpiredConfirmationCode)

	if err := f.otp.ConfirmEmail(ctx, user.Email, otp.EmailCode); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	got, _ := f.store.GetUserByID(ctx, user.ID)
	if !got.OtpVerified {
		t.Fatal("expected user to be verified after email confirmation")
	}
	row, _ := f.store.GetOtpByUserID(ctx, user.ID)
	if !row.EmailConfirmed || row.PhoneConfirmed {
		t.Fatalf("unexpected channel flags %+v", row)
	}
}

func TestConfirmPhoneRejectsExpiredCode(t *testing.T) {
	f := newOtpFixture()
	ctx := context.Background()
	user := createUser(t, f.store, "ann@example.com", "+10000000001", false)
	otp, err := f.otp.Issue(ctx, user)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	f.advance(otpTTL + time.Second)
	err = f.otp.ConfirmPhone(ctx, user.PhoneNumber, otp.SmsCode)
	assertKind(t, err, ErrInvalidOrExpiredConfirmationCode)

	got, _ := f.store.GetUserByID(ctx, user.ID)
	if got.OtpVerified {
		t.Fatal("expired code must not verify the user")
	}
}

func TestConfirmUnknownIdentifier(t *testing.T) {
	f := newOtpFixture()
	err := f.otp.ConfirmEmail(context.Background(), "nobody@example.com", "000001")
	assertKind(t, err, ErrResourceNotFound)
}

func TestResendLimitAndWindowReset(t *testing.T) {
	f := newOtpFixture()
	ctx := context.Background()
	user := createUser(t, f.store, "ann@example.com", "+10000000001", false)
	issued, err := f.otp.Issue(ctx, user)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	for i := 1; i <= maxResendCount; i++ {
		if err := f.otp.Resend(ctx, user.PhoneNumber, true); err != nil {
			t.Fatalf("resend %d: %v", i, err)
		}
		f.advance(time.Minute)
	}
	err = f.otp.Resend(ctx, user.PhoneNumber, true)
	assertKind(t, err, ErrResendLimitExceeded)

	row, _ := f.store.GetOtpByUserID(ctx, user.ID)
	if row.ResendCount != maxResendCount {
		t.Fatalf("expected count %d, got %d", maxResendCount, row.ResendCount)
	}
	if row.SmsCode == issued.SmsCode {
		t.Fatal("expected a new sms code after resend")
	}
	if row.EmailCode != issued.EmailCode {
		t.Fatal("phone resend must not touch the email code")
	}
	if len(f.sms.sent) != maxResendCount {
		t.Fatalf("expected %d sms, got %d", maxResendCount, len(f.sms.sent))
	}

	f.advance(resendWindow)
	if err := f.otp.Resend(ctx, user.PhoneNumber, true); err != nil {
		t.Fatalf("resend after window: %v", err)
	}
	row, _ = f.store.GetOtpByUserID(ctx, user.ID)
	if row.ResendCount != 1 {
		t.Fatalf("expected count reset to 1, got %d", row.ResendCount)
	}
}

func TestResendRecreatesSweptRow(t *testing.T) {
	f := newOtpFixture()
	ctx := context.Background()
	user := createUser(t, f.store, "ann@example.com", "+10000000001", false)
	if _, err := f.otp.Issue(ctx, user); err != nil {
		t.Fatalf("issue: %v", err)
	}

	f.advance(otpTTL + time.Minute)
	if n, err := f.store.DeleteExpiredOtps(ctx, f.clock); err != nil || n != 1 {
		t.Fatalf("sweep: n=%d err=%v", n, err)
	}

	if err := f.otp.Resend(ctx, user.Email, false); err != nil {
		t.Fatalf("resend: %v", err)
	}
	row, err := f.store.GetOtpByEmail(ctx, user.Email)
	if err != nil {
		t.Fatalf("expected a new otp row: %v", err)
	}
	if row.ResendCount != 1 || !row.EmailExpiresAt.After(f.clock) {
		t.Fatalf("unexpected reissued row %+v", row)
	}

	if err := f.otp.ConfirmEmail(ctx, user.Email, row.EmailCode); err != nil {
		t.Fatalf("confirm reissued code: %v", err)
	}
}

func TestResendForVerifiedUserWithoutRow(t *testing.T) {
	f := newOtpFixture()
	user := createUser(t, f.store, "ann@example.com", "+10000000001", true)

	err := f.otp.Resend(context.Background(), user.Email, false)
	assertKind(t, err, ErrResourceNotFound)
}

func TestConfirmAndResendUseRegisteredCasing(t *testing.T) {
	auth, f := newAuthFixture()
	ctx := context.Background()
	in := registerInput()
	in.PhoneNumber = " +10000000001 "

	user, err := auth.Register(ctx, in)
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := f.otp.Resend(ctx, "Ann@Example.com", false); err != nil {
		t.Fatalf("resend with registered casing: %v", err)
	}
	if err := f.otp.Resend(ctx, " +10000000001 ", true); err != nil {
		t.Fatalf("resend with padded phone: %v", err)
	}
	row, err := f.store.GetOtpByUserID(ctx, user.ID)
	if err != nil {
		t.Fatalf("otp row: %v", err)
	}

	if err := f.otp.ConfirmEmail(ctx, " Ann@Example.com", row.EmailCode); err != nil {
		t.Fatalf("confirm with registered casing: %v", err)
	}
	if err := f.otp.ConfirmPhone(ctx, " +10000000001", row.SmsCode); err != nil {
		t.Fatalf("confirm with padded phone: %v", err)
	}
	if _, err := auth.Login(ctx, "Ann@Example.com", in.Password); err != nil {
		t.Fatalf("login after confirmation: %v", err)
	}
}
