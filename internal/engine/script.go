package engine

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"salonpost/internal/apperrors"
	"salonpost/internal/dataset"
	"salonpost/internal/selectors"
)

// tagAddDelay is the courtesy pause between consecutive hashtag
// additions. The portal throttles rapid-fire form events.
const tagAddDelay = 500 * time.Millisecond

// script executes the portal workflow step by step. Login and navigation
// failures are session-fatal; submitRow errors are row-scoped unless the
// robot guard fires mid-row.
type script struct {
	d        Driver
	sel      *selectors.Config
	log      *slog.Logger
	tagDelay time.Duration
}

func newScript(d Driver, sel *selectors.Config, log *slog.Logger) *script {
	return &script{d: d, sel: sel, log: log, tagDelay: tagAddDelay}
}

// removeWidgets strips overlay widgets that intercept clicks.
// Best-effort: a failed removal never fails the step.
func (s *script) removeWidgets(ctx context.Context) {
	for _, sel := range s.sel.Widget.Selectors {
		if err := s.d.RemoveAll(ctx, sel); err != nil {
			s.log.Debug("widget removal failed", "selector", sel, "error", err)
		}
	}
}

// guard runs the robot-detection check.
func (s *script) guard(ctx context.Context) error {
	return checkRobotDetection(ctx, s.d, s.sel.RobotDetection)
}

// clickAndSettle clicks, waits for the page to settle, clears widgets
// and re-runs the guard. Used for every click that can navigate.
func (s *script) clickAndSettle(ctx context.Context, sel string) error {
	if err := s.d.ClickNavigate(ctx, sel); err != nil {
		return err
	}
	s.removeWidgets(ctx)
	return s.guard(ctx)
}

// fillFirst fills the first selector candidate that works.
func (s *script) fillFirst(ctx context.Context, target selectors.Target, value string) error {
	var lastErr error
	for _, sel := range target.Candidates() {
		if lastErr = s.d.Fill(ctx, sel, value); lastErr == nil {
			return nil
		}
	}
	return lastErr
}

// clickAndSettleFirst is clickAndSettle over selector candidates. Guard
// hits are returned immediately; only action failures fall through to
// the next candidate.
func (s *script) clickAndSettleFirst(ctx context.Context, target selectors.Target) error {
	var lastErr error
	for _, sel := range target.Candidates() {
		lastErr = s.clickAndSettle(ctx, sel)
		if lastErr == nil || apperrors.IsSessionFatal(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

// login authenticates and lands on the dashboard. Every failure here is
// session-fatal.
func (s *script) login(ctx context.Context, creds Credentials, hint SalonHint) error {
	login := s.sel.Login

	if err := s.d.Navigate(ctx, login.URL); err != nil {
		return apperrors.SessionFatal("script.login", err)
	}
	s.removeWidgets(ctx)
	if err := s.guard(ctx); err != nil {
		return err
	}

	if err := s.d.Fill(ctx, login.UserIDInput, creds.UserID); err != nil {
		return apperrors.SessionFatal("script.login", err)
	}
	if err := s.fillFirst(ctx, login.PasswordInput, creds.Password); err != nil {
		return apperrors.SessionFatal("script.login", err)
	}
	if err := s.clickAndSettleFirst(ctx, login.LoginButton); err != nil {
		if apperrors.IsSessionFatal(err) {
			return err
		}
		return apperrors.SessionFatal("script.login", err)
	}

	if err := s.selectSalon(ctx, hint); err != nil {
		return err
	}

	if err := s.d.WaitVisible(ctx, login.DashboardGlobalNavi); err != nil {
		return apperrors.SessionFatal("script.login", fmt.Errorf("dashboard landmark never appeared: %w", err))
	}
	s.log.Info("login complete")
	return nil
}

// selectSalon handles the salon choice page shown to multi-salon
// accounts. Single-salon accounts skip straight to the dashboard and the
// table is simply absent.
func (s *script) selectSalon(ctx context.Context, hint SalonHint) error {
	sal := s.sel.SalonSelection

	n, err := s.d.Count(ctx, sal.SalonListTable)
	if err != nil {
		return apperrors.SessionFatal("script.selectSalon", err)
	}
	if n == 0 {
		return nil
	}

	if hint.ID == "" && hint.Name == "" {
		return apperrors.SessionFatalMsg("script.selectSalon", "account lists multiple salons but no salon hint was given")
	}

	ids, err := s.d.Texts(ctx, sal.SalonListRow+" "+sal.SalonIDCell)
	if err != nil {
		return apperrors.SessionFatal("script.selectSalon", err)
	}
	names, err := s.d.Texts(ctx, sal.SalonListRow+" "+sal.SalonNameCell)
	if err != nil {
		return apperrors.SessionFatal("script.selectSalon", err)
	}

	match := -1
	if hint.ID != "" {
		for i, id := range ids {
			if id == hint.ID {
				match = i
				break
			}
		}
	}
	if match < 0 && hint.Name != "" {
		for i, name := range names {
			if name == hint.Name {
				match = i
				break
			}
		}
	}
	if match < 0 {
		return apperrors.SessionFatalMsg("script.selectSalon",
			fmt.Sprintf("no salon matched hint (id %q, name %q) among %d listed", hint.ID, hint.Name, len(names)))
	}

	rowLink := fmt.Sprintf("%s:nth-of-type(%d) a", sal.SalonListRow, match+1)
	if err := s.clickAndSettle(ctx, rowLink); err != nil {
		if apperrors.IsSessionFatal(err) {
			return err
		}
		return apperrors.SessionFatal("script.selectSalon", err)
	}
	s.log.Info("salon selected", "index", match)
	return nil
}

// navigateToStyleList performs the two menu hops from the dashboard to
// the style list. Session-fatal on any failure.
func (s *script) navigateToStyleList(ctx context.Context) error {
	nav := s.sel.Navigation
	for _, sel := range []string{nav.PublishManagement, nav.StyleList} {
		if err := s.clickAndSettle(ctx, sel); err != nil {
			if apperrors.IsSessionFatal(err) {
				return err
			}
			return apperrors.SessionFatal("script.navigate", err)
		}
	}
	s.log.Info("style list reached")
	return nil
}

// submitRow posts one style entry and returns to the list view. Errors
// are returned raw (row-scoped) except guard hits, which come back
// session-fatal from clickAndSettle.
func (s *script) submitRow(ctx context.Context, row dataset.Row, imageDir string) error {
	form := s.sel.StyleForm

	if err := s.clickAndSettle(ctx, form.NewStyleButton); err != nil {
		return err
	}

	if err := s.uploadImage(ctx, filepath.Join(imageDir, row.Get(dataset.ColImageName))); err != nil {
		return err
	}

	// Optional fields: absent columns stay at the form's defaults.
	if row.Has(dataset.ColStylistName) {
		if err := s.d.SelectByLabel(ctx, form.StylistNameSelect, row.Get(dataset.ColStylistName)); err != nil {
			return err
		}
	}
	if row.Has(dataset.ColComment) {
		if err := s.d.Fill(ctx, form.StylistCommentArea, row.Get(dataset.ColComment)); err != nil {
			return err
		}
	}
	if row.Has(dataset.ColStyleName) {
		if err := s.d.Fill(ctx, form.StyleNameInput, row.Get(dataset.ColStyleName)); err != nil {
			return err
		}
	}
	if row.Has(dataset.ColMenuDetail) {
		if err := s.d.Fill(ctx, form.MenuDetailArea, row.Get(dataset.ColMenuDetail)); err != nil {
			return err
		}
	}

	if err := s.selectCategory(ctx, row); err != nil {
		return err
	}

	if row.Has(dataset.ColCouponName) {
		if err := s.selectCoupon(ctx, row.Get(dataset.ColCouponName)); err != nil {
			return err
		}
	}

	if err := s.addHashtags(ctx, row.Hashtags()); err != nil {
		return err
	}

	if err := s.clickAndSettle(ctx, form.RegisterButton); err != nil {
		return err
	}
	if err := s.d.WaitVisible(ctx, form.CompleteText); err != nil {
		return fmt.Errorf("completion marker never appeared: %w", err)
	}
	return s.clickAndSettle(ctx, form.BackToListButton)
}

// uploadImage drives the photo upload modal end to end.
func (s *script) uploadImage(ctx context.Context, imagePath string) error {
	img := s.sel.StyleForm.Image

	if err := s.d.Click(ctx, img.UploadArea); err != nil {
		return err
	}
	if err := s.d.WaitVisible(ctx, img.ModalContainer); err != nil {
		return err
	}
	if err := s.d.SetFiles(ctx, img.FileInput, []string{imagePath}); err != nil {
		return err
	}
	// The submit button stays disabled until the portal finishes its
	// own upload processing.
	if err := s.d.WaitVisible(ctx, img.SubmitButtonActive); err != nil {
		return err
	}
	if err := s.d.Click(ctx, img.SubmitButtonActive); err != nil {
		return err
	}
	return s.d.WaitHidden(ctx, img.ModalContainer)
}

// selectCategory picks the ladies or mens branch and its dependent
// length select. Rows without a category get the ladies default.
func (s *script) selectCategory(ctx context.Context, row dataset.Row) error {
	form := s.sel.StyleForm

	radio, lengthSel := form.CategoryLadiesRadio, form.LengthSelectLadies
	if row.IsMens() {
		radio, lengthSel = form.CategoryMensRadio, form.LengthSelectMens
	}
	if err := s.d.Click(ctx, radio); err != nil {
		return err
	}
	if row.Has(dataset.ColLength) {
		return s.d.SelectByLabel(ctx, lengthSel, row.Get(dataset.ColLength))
	}
	return nil
}

// selectCoupon resolves a named coupon in the selection modal by exact
// label. No match is a row-level failure.
func (s *script) selectCoupon(ctx context.Context, name string) error {
	coupon := s.sel.StyleForm.Coupon

	if err := s.d.Click(ctx, coupon.SelectButton); err != nil {
		return err
	}
	if err := s.d.WaitVisible(ctx, coupon.ModalContainer); err != nil {
		return err
	}

	label := strings.ReplaceAll(coupon.ItemLabelTemplate, "{name}", name)
	n, err := s.d.Count(ctx, label)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("coupon %q not found in selection modal", name)
	}

	if err := s.d.Click(ctx, label); err != nil {
		return err
	}
	if err := s.d.Click(ctx, coupon.SettingButton); err != nil {
		return err
	}
	return s.d.WaitHidden(ctx, coupon.ModalContainer)
}

// addHashtags adds tags one at a time with a courtesy delay in between.
func (s *script) addHashtags(ctx context.Context, tags []string) error {
	form := s.sel.StyleForm.Hashtag
	for i, tag := range tags {
		if i > 0 {
			select {
			case <-time.After(s.tagDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err := s.d.Fill(ctx, form.InputArea, tag); err != nil {
			return err
		}
		if err := s.d.Click(ctx, form.AddButton); err != nil {
			return err
		}
	}
	return nil
}
