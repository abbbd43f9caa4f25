// Package selectors loads the portal selector configuration.
//
// Every CSS selector and text signature the automation uses lives in one
// YAML file, versioned alongside the code. The file is loaded once at
// startup and validated eagerly so that a portal markup change surfaces
// as a configuration edit, not a code change, and a broken file fails
// the process before any browser is launched.
package selectors

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"salonpost/internal/apperrors"
)

// Target is a selector with an optional fallback tried when the primary
// matches nothing. The portal has shipped markup variants for a few
// elements; the fallback absorbs those.
type Target struct {
	Primary  string `yaml:"primary"`
	Fallback string `yaml:"fallback"`
}

// Candidates returns the selectors to try, in order.
func (t Target) Candidates() []string {
	if t.Fallback == "" {
		return []string{t.Primary}
	}
	return []string{t.Primary, t.Fallback}
}

// Login covers the login page and the post-login landmark.
type Login struct {
	URL                 string `yaml:"url"`
	UserIDInput         string `yaml:"user_id_input"`
	PasswordInput       Target `yaml:"password_input"`
	LoginButton         Target `yaml:"login_button"`
	DashboardGlobalNavi string `yaml:"dashboard_global_navi"`
}

// SalonSelection covers the salon choice table shown to multi-salon accounts.
type SalonSelection struct {
	SalonListTable string `yaml:"salon_list_table"`
	SalonListRow   string `yaml:"salon_list_row"`
	SalonNameCell  string `yaml:"salon_name_cell"`
	SalonIDCell    string `yaml:"salon_id_cell"`
}

// Navigation covers the two menu hops from the dashboard to the style list.
type Navigation struct {
	PublishManagement string `yaml:"keisai_kanri"`
	StyleList         string `yaml:"style"`
}

// ImageModal covers the photo upload dialog.
type ImageModal struct {
	UploadArea         string `yaml:"upload_area"`
	ModalContainer     string `yaml:"modal_container"`
	FileInput          string `yaml:"file_input"`
	SubmitButtonActive string `yaml:"submit_button_active"`
}

// CouponModal covers the coupon selection dialog. ItemLabelTemplate
// contains a {name} placeholder substituted with the coupon name.
type CouponModal struct {
	SelectButton      string `yaml:"select_button"`
	ModalContainer    string `yaml:"modal_container"`
	ItemLabelTemplate string `yaml:"item_label_template"`
	SettingButton     string `yaml:"setting_button"`
}

// Hashtag covers the tag input pair.
type Hashtag struct {
	InputArea string `yaml:"input_area"`
	AddButton string `yaml:"add_button"`
}

// StyleForm covers the style registration form.
type StyleForm struct {
	NewStyleButton        string      `yaml:"new_style_button"`
	Image                 ImageModal  `yaml:"image"`
	StylistNameSelect     string      `yaml:"stylist_name_select"`
	StylistCommentArea    string      `yaml:"stylist_comment_textarea"`
	StyleNameInput        string      `yaml:"style_name_input"`
	CategoryLadiesRadio   string      `yaml:"category_ladies_radio"`
	CategoryMensRadio     string      `yaml:"category_mens_radio"`
	LengthSelectLadies    string      `yaml:"length_select_ladies"`
	LengthSelectMens      string      `yaml:"length_select_mens"`
	MenuDetailArea        string      `yaml:"menu_detail_textarea"`
	Coupon                CouponModal `yaml:"coupon"`
	Hashtag               Hashtag     `yaml:"hashtag"`
	RegisterButton        string      `yaml:"register_button"`
	CompleteText          string      `yaml:"complete_text"`
	BackToListButton      string      `yaml:"back_to_list_button"`
}

// RobotDetection holds the challenge page signatures. Selectors are
// checked before texts.
type RobotDetection struct {
	Selectors []string `yaml:"selectors"`
	Texts     []string `yaml:"texts"`
}

// Widget holds selectors for third-party overlay widgets the portal
// injects. Matching elements are removed before interacting with the page.
type Widget struct {
	Selectors []string `yaml:"selectors"`
}

// Config is the full selector configuration.
type Config struct {
	Login          Login          `yaml:"login"`
	SalonSelection SalonSelection `yaml:"salon_selection"`
	Navigation     Navigation     `yaml:"navigation"`
	StyleForm      StyleForm      `yaml:"style_form"`
	RobotDetection RobotDetection `yaml:"robot_detection"`
	Widget         Widget         `yaml:"widget"`
}

// Load reads and validates a selector configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Internal("selectors.load", err)
	}
	return Parse(data)
}

// Parse decodes and validates selector configuration bytes.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, apperrors.Internal("selectors.parse", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that every selector the script depends on is present.
func (c *Config) Validate() error {
	var missing []string
	req := func(key, value string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, key)
		}
	}

	req("login.url", c.Login.URL)
	req("login.user_id_input", c.Login.UserIDInput)
	req("login.password_input.primary", c.Login.PasswordInput.Primary)
	req("login.login_button.primary", c.Login.LoginButton.Primary)
	req("login.dashboard_global_navi", c.Login.DashboardGlobalNavi)

	req("salon_selection.salon_list_table", c.SalonSelection.SalonListTable)
	req("salon_selection.salon_list_row", c.SalonSelection.SalonListRow)
	req("salon_selection.salon_name_cell", c.SalonSelection.SalonNameCell)
	req("salon_selection.salon_id_cell", c.SalonSelection.SalonIDCell)

	req("navigation.keisai_kanri", c.Navigation.PublishManagement)
	req("navigation.style", c.Navigation.StyleList)

	f := &c.StyleForm
	req("style_form.new_style_button", f.NewStyleButton)
	req("style_form.image.upload_area", f.Image.UploadArea)
	req("style_form.image.modal_container", f.Image.ModalContainer)
	req("style_form.image.file_input", f.Image.FileInput)
	req("style_form.image.submit_button_active", f.Image.SubmitButtonActive)
	req("style_form.style_name_input", f.StyleNameInput)
	req("style_form.category_ladies_radio", f.CategoryLadiesRadio)
	req("style_form.category_mens_radio", f.CategoryMensRadio)
	req("style_form.length_select_ladies", f.LengthSelectLadies)
	req("style_form.length_select_mens", f.LengthSelectMens)
	req("style_form.coupon.select_button", f.Coupon.SelectButton)
	req("style_form.coupon.modal_container", f.Coupon.ModalContainer)
	req("style_form.coupon.item_label_template", f.Coupon.ItemLabelTemplate)
	req("style_form.coupon.setting_button", f.Coupon.SettingButton)
	req("style_form.hashtag.input_area", f.Hashtag.InputArea)
	req("style_form.hashtag.add_button", f.Hashtag.AddButton)
	req("style_form.register_button", f.RegisterButton)
	req("style_form.complete_text", f.CompleteText)
	req("style_form.back_to_list_button", f.BackToListButton)

	if f.Coupon.ItemLabelTemplate != "" && !strings.Contains(f.Coupon.ItemLabelTemplate, "{name}") {
		return apperrors.Validation("style_form.coupon.item_label_template", "item_label_template must contain a {name} placeholder")
	}

	if len(c.RobotDetection.Selectors) == 0 && len(c.RobotDetection.Texts) == 0 {
		missing = append(missing, "robot_detection.selectors|texts")
	}

	if len(missing) > 0 {
		return apperrors.Validation(missing[0], fmt.Sprintf("selector configuration is missing required keys: %s", strings.Join(missing, ", ")))
	}
	return nil
}
