package engine

import (
	"context"
	"strings"
	"testing"
	"time"

	"salonpost/internal/apperrors"
	"salonpost/internal/dataset"
)

func newTestScript(d Driver) *script {
	s := newScript(d, testSelectors(), discardLogger())
	s.tagDelay = time.Millisecond
	return s
}

func hasAction(log []string, action string) bool {
	for _, entry := range log {
		if entry == action {
			return true
		}
	}
	return false
}

func TestLoginSingleSalon(t *testing.T) {
	t.Parallel()

	d := &fakeDriver{counts: map[string]int{}}
	s := newTestScript(d)

	if err := s.login(context.Background(), Credentials{UserID: "u", Password: "p"}, SalonHint{}); err != nil {
		t.Fatalf("login() error = %v", err)
	}

	log := d.actionLog()
	for _, want := range []string{
		"navigate https://portal.test/login/",
		"fill #loginId",
		"fill #password",
		"clicknav #loginBtn",
		"waitvisible #globalNavi",
	} {
		if !hasAction(log, want) {
			t.Errorf("missing action %q in %v", want, log)
		}
	}
}

func TestLoginMultiSalonMatchesByIDFirst(t *testing.T) {
	t.Parallel()

	d := &fakeDriver{
		counts: map[string]int{"#salons": 1},
		texts: map[string][]string{
			"#salons tr .id":   {"S001", "S002", "S003"},
			"#salons tr .name": {"渋谷店", "新宿店", "池袋店"},
		},
	}
	s := newTestScript(d)

	// The hint's name matches row 0, but the ID match on row 1 wins.
	hint := SalonHint{ID: "S002", Name: "渋谷店"}
	if err := s.login(context.Background(), Credentials{UserID: "u", Password: "p"}, hint); err != nil {
		t.Fatalf("login() error = %v", err)
	}

	if !hasAction(d.actionLog(), "clicknav #salons tr:nth-of-type(2) a") {
		t.Errorf("expected click on row 2 link, log: %v", d.actionLog())
	}
}

func TestLoginMultiSalonFallsBackToName(t *testing.T) {
	t.Parallel()

	d := &fakeDriver{
		counts: map[string]int{"#salons": 1},
		texts: map[string][]string{
			"#salons tr .id":   {"S001", "S002"},
			"#salons tr .name": {"渋谷店", "新宿店"},
		},
	}
	s := newTestScript(d)

	hint := SalonHint{ID: "S999", Name: "新宿店"}
	if err := s.login(context.Background(), Credentials{UserID: "u", Password: "p"}, hint); err != nil {
		t.Fatalf("login() error = %v", err)
	}
	if !hasAction(d.actionLog(), "clicknav #salons tr:nth-of-type(2) a") {
		t.Errorf("expected name-matched row click, log: %v", d.actionLog())
	}
}

func TestLoginMultiSalonRequiresHint(t *testing.T) {
	t.Parallel()

	d := &fakeDriver{counts: map[string]int{"#salons": 1}}
	s := newTestScript(d)

	err := s.login(context.Background(), Credentials{UserID: "u", Password: "p"}, SalonHint{})
	if !apperrors.IsSessionFatal(err) {
		t.Fatalf("error = %v, want session fatal", err)
	}
}

func TestLoginMultiSalonNoMatchIsFatal(t *testing.T) {
	t.Parallel()

	d := &fakeDriver{
		counts: map[string]int{"#salons": 1},
		texts: map[string][]string{
			"#salons tr .id":   {"S001"},
			"#salons tr .name": {"渋谷店"},
		},
	}
	s := newTestScript(d)

	err := s.login(context.Background(), Credentials{UserID: "u", Password: "p"}, SalonHint{ID: "S999", Name: "存在しない店"})
	if !apperrors.IsSessionFatal(err) {
		t.Fatalf("error = %v, want session fatal", err)
	}
}

func TestLoginPasswordFallbackSelector(t *testing.T) {
	t.Parallel()

	d := &fakeDriver{counts: map[string]int{}}
	d.onFill = func(sel, _ string) error {
		if sel == "#password" {
			return context.DeadlineExceeded
		}
		return nil
	}
	s := newScript(d, testSelectors(), discardLogger())
	s.sel.Login.PasswordInput.Fallback = "input[type='password']"

	if err := s.login(context.Background(), Credentials{UserID: "u", Password: "p"}, SalonHint{}); err != nil {
		t.Fatalf("login() error = %v", err)
	}
	if !hasAction(d.actionLog(), "fill input[type='password']") {
		t.Errorf("fallback selector not tried, log: %v", d.actionLog())
	}
}

func TestSubmitRowLeavesAbsentFieldsAlone(t *testing.T) {
	t.Parallel()

	d := &fakeDriver{counts: map[string]int{}}
	s := newTestScript(d)

	row := dataset.Row{dataset.ColImageName: "a.jpg"}
	if err := s.submitRow(context.Background(), row, "/images"); err != nil {
		t.Fatalf("submitRow() error = %v", err)
	}

	log := d.actionLog()
	for _, forbidden := range []string{"fill #styleName", "fill #comment", "fill #menu", "click #couponBtn"} {
		if hasAction(log, forbidden) {
			t.Errorf("absent field was touched: %q", forbidden)
		}
	}
	// Default category still applies.
	if !hasAction(log, "click #catLadies") {
		t.Errorf("ladies default not selected, log: %v", log)
	}
}

func TestSubmitRowMensBranch(t *testing.T) {
	t.Parallel()

	d := &fakeDriver{counts: map[string]int{}}
	s := newTestScript(d)

	row := dataset.Row{
		dataset.ColImageName: "a.jpg",
		dataset.ColCategory:  "メンズ",
		dataset.ColLength:    "ショート",
	}
	if err := s.submitRow(context.Background(), row, "/images"); err != nil {
		t.Fatalf("submitRow() error = %v", err)
	}

	log := d.actionLog()
	if !hasAction(log, "click #catMens") {
		t.Errorf("mens radio not clicked, log: %v", log)
	}
	if !hasAction(log, "select #lenMens = ショート") {
		t.Errorf("mens length not selected, log: %v", log)
	}
	if hasAction(log, "click #catLadies") || hasAction(log, "select #lenLadies = ショート") {
		t.Errorf("ladies branch touched on a mens row, log: %v", log)
	}
}

func TestSubmitRowCouponNoMatchIsRowLevel(t *testing.T) {
	t.Parallel()

	d := &fakeDriver{counts: map[string]int{}} // label lookup returns 0 matches
	s := newTestScript(d)

	row := dataset.Row{
		dataset.ColImageName:  "a.jpg",
		dataset.ColCouponName: "存在しないクーポン",
	}
	err := s.submitRow(context.Background(), row, "/images")
	if err == nil {
		t.Fatal("expected coupon lookup failure")
	}
	if apperrors.IsSessionFatal(err) {
		t.Errorf("coupon no-match must be row-level, got session fatal: %v", err)
	}
	if !strings.Contains(err.Error(), "存在しないクーポン") {
		t.Errorf("error should name the coupon: %v", err)
	}
}

func TestSubmitRowCouponMatch(t *testing.T) {
	t.Parallel()

	label := "label[data-name='カット+カラー']"
	d := &fakeDriver{counts: map[string]int{label: 1}}
	s := newTestScript(d)

	row := dataset.Row{
		dataset.ColImageName:  "a.jpg",
		dataset.ColCouponName: "カット+カラー",
	}
	if err := s.submitRow(context.Background(), row, "/images"); err != nil {
		t.Fatalf("submitRow() error = %v", err)
	}

	log := d.actionLog()
	if !hasAction(log, "click "+label) {
		t.Errorf("coupon label not clicked, log: %v", log)
	}
	if !hasAction(log, "click #couponSet") {
		t.Errorf("setting button not clicked, log: %v", log)
	}
}

func TestSubmitRowHashtagLoop(t *testing.T) {
	t.Parallel()

	d := &fakeDriver{counts: map[string]int{}}
	s := newTestScript(d)

	row := dataset.Row{
		dataset.ColImageName: "a.jpg",
		dataset.ColHashtags:  "ボブ,透明感カラー,小顔",
	}
	if err := s.submitRow(context.Background(), row, "/images"); err != nil {
		t.Fatalf("submitRow() error = %v", err)
	}

	adds := 0
	for _, entry := range d.actionLog() {
		if entry == "click #tagAdd" {
			adds++
		}
	}
	if adds != 3 {
		t.Errorf("add button clicked %d times, want 3", adds)
	}
}
