package cli

import (
	"fmt"
	"strings"

	"github.com/AlecAivazis/survey/v2"

	"nse-fees/internal/models"
	"nse-fees/internal/refdata"
)

// calcAnswers is what the interactive calculator collects.
type calcAnswers struct {
	Ticker    string
	BrokerID  string
	Quantity  int64
	Direction models.Direction
}

// PromptForStock asks the user to pick a stock, popular tickers first.
func PromptForStock(cat *refdata.Catalog) (string, error) {
	ds := cat.Dataset()
	var options []string
	byOption := make(map[string]string)
	add := func(s models.Stock) {
		opt := fmt.Sprintf("%s @ KES %s", s.DisplayName(), s.Price.StringFixed(2))
		if _, dup := byOption[opt]; dup {
			return
		}
		options = append(options, opt)
		byOption[opt] = s.Ticker
	}
	for _, t := range ds.Popular {
		if s, err := cat.GetStock(t); err == nil {
			add(s)
		}
	}
	for _, s := range ds.Stocks {
		add(s)
	}

	var selected string
	prompt := &survey.Select{
		Message:  "Select a stock:",
		Options:  options,
		Help:     "Type to filter by ticker or company name",
		PageSize: 12,
	}
	if err := survey.AskOne(prompt, &selected); err != nil {
		return "", err
	}
	return byOption[selected], nil
}

// PromptForBroker asks the user to pick a registered broker.
func PromptForBroker(cat *refdata.Catalog) (string, error) {
	var options []string
	byOption := make(map[string]string)
	def, _ := cat.DefaultBroker()
	var defOpt string

	for _, b := range cat.AllBrokers() {
		if b.IsCustom() {
			continue
		}
		opt := fmt.Sprintf("%s - %s", b.Name, b.Hint())
		options = append(options, opt)
		byOption[opt] = b.ID
		if b.ID == def.ID {
			defOpt = opt
		}
	}

	var selected string
	prompt := &survey.Select{
		Message: "Select your broker:",
		Options: options,
		Default: defOpt,
	}
	if err := survey.AskOne(prompt, &selected); err != nil {
		return "", err
	}
	return byOption[selected], nil
}

// PromptForQuantity asks for a whole number of shares.
func PromptForQuantity() (int64, error) {
	var answer string
	prompt := &survey.Input{
		Message: "Number of shares:",
		Default: "100",
	}
	err := survey.AskOne(prompt, &answer, survey.WithValidator(func(val interface{}) error {
		_, err := ParseQuantity(val.(string))
		return err
	}))
	if err != nil {
		return 0, err
	}
	return ParseQuantity(answer)
}

// PromptForDirection asks whether the trade is a buy or a sell.
func PromptForDirection() (models.Direction, error) {
	var selected string
	prompt := &survey.Select{
		Message: "Buy or sell?",
		Options: []string{"Buy", "Sell"},
		Default: "Buy",
	}
	if err := survey.AskOne(prompt, &selected); err != nil {
		return "", err
	}
	return models.ParseDirection(strings.ToLower(selected))
}

// promptCalc runs the interactive calculator prompts.
func promptCalc(cat *refdata.Catalog) (*calcAnswers, error) {
	ticker, err := PromptForStock(cat)
	if err != nil {
		return nil, err
	}
	brokerID, err := PromptForBroker(cat)
	if err != nil {
		return nil, err
	}
	dir, err := PromptForDirection()
	if err != nil {
		return nil, err
	}
	qty, err := PromptForQuantity()
	if err != nil {
		return nil, err
	}
	return &calcAnswers{Ticker: ticker, BrokerID: brokerID, Quantity: qty, Direction: dir}, nil
}
