package cmd

import (
	"strings"

	"github.com/etnz/allocation"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

// predictUsers predicts the users having a record in the store.
func predictUsers(prefix string) []string {
	cfg, err := loadConfig()
	if err != nil {
		return nil
	}
	store, err := allocation.NewStore(cfg.DataDir)
	if err != nil {
		return nil
	}
	users, err := store.Users()
	if err != nil {
		return nil
	}
	var res []string
	for _, u := range users {
		if strings.HasPrefix(u, prefix) {
			res = append(res, u)
		}
	}
	return res
}

// Completion returns the shell completion of pfm.
func Completion() *complete.Command {
	users := complete.PredictFunc(predictUsers)
	userOnly := &complete.Command{Flags: map[string]complete.Predictor{"user": users}}

	return &complete.Command{
		Flags: map[string]complete.Predictor{
			"data-dir":  predict.Dirs("*"),
			"log-level": predict.Set{"debug", "info", "warn", "error"},
		},
		Sub: map[string]*complete.Command{
			"serve":      {},
			"serve-http": {Flags: map[string]complete.Predictor{"addr": predict.Something}},
			"assist":     {Flags: map[string]complete.Predictor{"user": users}, Args: predict.Something},
			"update": {Flags: map[string]complete.Predictor{
				"user":  users,
				"stock": predict.Something,
				"bond":  predict.Something,
			}},
			"remove": {Flags: map[string]complete.Predictor{
				"user":  users,
				"stock": predict.Something,
				"bond":  predict.Something,
			}},
			"view":      userOnly,
			"report":    userOnly,
			"recommend": userOnly,
			"chart": {Flags: map[string]complete.Predictor{
				"user": users,
				"o":    predict.Files("*.png"),
			}},
			"record": {Flags: map[string]complete.Predictor{
				"user":        users,
				"performance": predict.Nothing,
			}},
			"prices": {Flags: map[string]complete.Predictor{"days": predict.Something}, Args: predict.Something},
			"news":   {Flags: map[string]complete.Predictor{"max": predict.Something}, Args: predict.Something},
			"search": {Args: predict.Something},
		},
	}
}
