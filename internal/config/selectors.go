package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Selectors locates the console's UI elements. Texts are matched against
// visible labels; the rest are CSS selectors.
type Selectors struct {
	LoginMarkerText  string   `yaml:"loginMarkerText"`
	PopupButtonTexts []string `yaml:"popupButtonTexts"`

	StartDateInput string `yaml:"startDateInput"`
	EndDateInput   string `yaml:"endDateInput"`
	SearchButton   string `yaml:"searchButton"`

	TableRow     string `yaml:"tableRow"`
	ViewLinkText string `yaml:"viewLinkText"`

	NextPageButton   string   `yaml:"nextPageButton"`
	DisabledClasses  []string `yaml:"disabledClasses"`
	ExpandButtonText string   `yaml:"expandButtonText"`

	MessageContainer string   `yaml:"messageContainer"`
	MessageItem      string   `yaml:"messageItem"`
	CloseButtons     []string `yaml:"closeButtons"`

	ImageAlt      string   `yaml:"imageAlt"`
	ServiceStyles []string `yaml:"serviceStyles"`
	SystemPhrases []string `yaml:"systemPhrases"`
}

// DefaultSelectors returns the locators of the seller console's history view.
func DefaultSelectors() Selectors {
	return Selectors{
		LoginMarkerText:  "历史会话",
		PopupButtonTexts: []string{"放弃定制售后", "Close"},

		StartDateInput: `input[placeholder="开始日期"]`,
		EndDateInput:   `input[placeholder="结束日期"]`,
		SearchButton:   "查询",

		TableRow:     "tr",
		ViewLinkText: "查看会话",

		NextPageButton:   `button[aria-label="right"], li.arco-pagination-item-next`,
		DisabledClasses:  []string{"disabled", "arco-pagination-disabled", "arco-pagination-item-disabled"},
		ExpandButtonText: "切换该用户全部聊天消息",

		MessageContainer: ".scroller",
		MessageItem:      `div[data-qa-id="qa-message-warpper"]`,
		CloseButtons:     []string{`button[aria-label="Close"]`, ".arco-modal-close-icon"},

		ImageAlt:      "图片",
		ServiceStyles: []string{"flex-direction: row-reverse", "flex-direction:row-reverse"},
		SystemPhrases: []string{"机器人接待中", "关闭会话", "接入"},
	}
}

// LoadSelectors overlays the YAML file at path on the defaults. Keys absent
// from the file keep their default. An empty path returns the defaults.
func LoadSelectors(path string) (Selectors, error) {
	sel := DefaultSelectors()
	if path == "" {
		return sel, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return sel, fmt.Errorf("read selectors: %w", err)
	}
	if err := yaml.Unmarshal(data, &sel); err != nil {
		return sel, fmt.Errorf("parse selectors: %w", err)
	}
	return sel, nil
}
