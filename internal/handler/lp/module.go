package lp

import "go.uber.org/fx"

var Module = fx.Module("lp", fx.Provide(NewLPHandler))
