package terminal

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/dwarfsym/dwarfsym/pkg/config"
)

func configureCmd(t *Term, args string) error {
	switch args {
	case "-list":
		w := tabwriter.NewWriter(t.stdout, 0, 8, 1, ' ', 0)
		config.ConfigureList(w, t.conf, "yaml")
		return w.Flush()
	case "-save":
		return config.SaveConfig(t.conf)
	case "":
		return fmt.Errorf("wrong number of arguments to \"config\"")
	default:
		return configureSet(t, args)
	}
}

func configureFindFieldByName(conf *config.Config, name string) reflect.Value {
	cfgValue := reflect.ValueOf(conf).Elem()
	cfgType := cfgValue.Type()
	for i := 0; i < cfgValue.NumField(); i++ {
		fieldName := cfgType.Field(i).Tag.Get("yaml")
		if comma := strings.Index(fieldName, ","); comma >= 0 {
			fieldName = fieldName[:comma]
		}
		if fieldName == name {
			return cfgValue.Field(i)
		}
	}
	return reflect.ValueOf(nil)
}

func configureSet(t *Term, args string) error {
	v, err := splitArgs(args)
	if err != nil {
		return err
	}

	cfgname := v[0]
	rest := v[1:]

	switch cfgname {
	case "alias":
		return configureSetAlias(t, rest)
	case "substitute-path":
		return configureSetSubstitutePath(t, rest)
	}

	field := configureFindFieldByName(t.conf, cfgname)
	if !field.CanAddr() {
		return fmt.Errorf("%q is not a configuration parameter", cfgname)
	}
	if len(rest) != 1 {
		return fmt.Errorf("wrong number of arguments to config %s", cfgname)
	}

	switch field.Kind() {
	case reflect.Int:
		n, err := strconv.Atoi(rest[0])
		if err != nil {
			return fmt.Errorf("argument to %q must be a number", cfgname)
		}
		field.SetInt(int64(n))
	case reflect.Ptr:
		if field.Type().Elem().Kind() != reflect.Int {
			return fmt.Errorf("%q can not be set", cfgname)
		}
		n, err := strconv.Atoi(rest[0])
		if err != nil {
			return fmt.Errorf("argument to %q must be a number", cfgname)
		}
		field.Set(reflect.ValueOf(&n))
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("%q can not be set", cfgname)
		}
		field.Set(reflect.Append(field, reflect.ValueOf(rest[0])))
	default:
		return fmt.Errorf("%q can not be set", cfgname)
	}
	return nil
}

func configureSetAlias(t *Term, rest []string) error {
	switch len(rest) {
	case 1:
		for k, v := range t.conf.Aliases {
			kept := v[:0]
			for _, alias := range v {
				if alias != rest[0] {
					kept = append(kept, alias)
				}
			}
			t.conf.Aliases[k] = kept
		}
	case 2:
		cmdstr, alias := rest[0], rest[1]
		if t.cmds.canonical(cmdstr) == "" {
			return fmt.Errorf("unknown command %q", cmdstr)
		}
		cmdstr = t.cmds.canonical(cmdstr)
		if t.conf.Aliases == nil {
			t.conf.Aliases = make(map[string][]string)
		}
		t.conf.Aliases[cmdstr] = append(t.conf.Aliases[cmdstr], alias)
	default:
		return fmt.Errorf("wrong number of arguments to config alias")
	}
	t.cmds.Merge(t.conf.Aliases)
	return nil
}

func configureSetSubstitutePath(t *Term, rest []string) error {
	switch len(rest) {
	case 1: // delete substitute-path rule
		for i := range t.conf.SubstitutePath {
			if t.conf.SubstitutePath[i].From == rest[0] {
				copy(t.conf.SubstitutePath[i:], t.conf.SubstitutePath[i+1:])
				t.conf.SubstitutePath = t.conf.SubstitutePath[:len(t.conf.SubstitutePath)-1]
				return nil
			}
		}
		return fmt.Errorf("could not find rule for %q", rest[0])
	case 2: // add substitute-path rule
		for i := range t.conf.SubstitutePath {
			if t.conf.SubstitutePath[i].From == rest[0] {
				t.conf.SubstitutePath[i].To = rest[1]
				return nil
			}
		}
		t.conf.SubstitutePath = append(t.conf.SubstitutePath, config.SubstitutePathRule{From: rest[0], To: rest[1]})
	default:
		return fmt.Errorf("wrong number of arguments to config substitute-path")
	}
	return nil
}
