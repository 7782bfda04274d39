package ui

import "salvage/internal/event"

// quietPresenter consumes events but produces no output.
type quietPresenter struct{}

func (p *quietPresenter) Start()               {}
func (p *quietPresenter) Stop()                {}
func (p *quietPresenter) Handle(_ event.Event) {}
func (p *quietPresenter) Summary() string      { return "" }
