package registry

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/zclconf/go-cty/cty/gocty"

	"github.com/specialistvlad/treeforge/internal/ctxlog"
)

// ValidateRegistry checks that every plugin can be constructed from a graph
// file: it needs a callback constructor, and its argument struct must be a
// pointer to a struct whose tagged fields map to cty types.
func (r *Registry) ValidateRegistry(ctx context.Context) error {
	var errs []string
	logger := ctxlog.FromContext(ctx)

	for _, name := range r.Names() {
		p := r.PluginRegistry[name]
		if p.NewCallback == nil {
			errs = append(errs, fmt.Sprintf("plugin '%s': no callback constructor", name))
		}
		if p.NewArgs == nil {
			continue
		}

		args := p.NewArgs()
		t := reflect.TypeOf(args)
		if t == nil || t.Kind() != reflect.Pointer || t.Elem().Kind() != reflect.Struct {
			errs = append(errs, fmt.Sprintf("plugin '%s': NewArgs must return a pointer to a struct, got %T", name, args))
			continue
		}

		st := t.Elem()
		for i := 0; i < st.NumField(); i++ {
			field := st.Field(i)
			if !field.IsExported() {
				continue
			}
			tag := strings.Split(field.Tag.Get("hcl"), ",")
			if tag[0] == "" {
				errs = append(errs, fmt.Sprintf("plugin '%s': field '%s' has no hcl tag", name, field.Name))
				continue
			}
			if len(tag) > 1 && (tag[1] == "remain" || tag[1] == "block" || tag[1] == "label") {
				continue
			}
			if _, err := gocty.ImpliedType(reflect.Zero(field.Type).Interface()); err != nil {
				errs = append(errs, fmt.Sprintf("plugin '%s', argument '%s': could not imply cty type from Go field type %s: %v", name, tag[0], field.Type, err))
			}
		}
		logger.Debug("Plugin validated.", "plugin", name)
	}

	if len(errs) > 0 {
		return fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}
