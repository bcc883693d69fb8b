/*
Package dsl provides a fluent Go API for constructing selection tree
templates without definition files.

Trees built here go through the same compiler as XML and YAML definitions,
so conditions, signals and translations are validated identically. This is
mostly useful for tests and for hosts that generate trees at runtime.

Example usage:

	tmpl, err := dsl.New("Soldier").
		Type("Human").
		Variable("HasTarget", false).
		Variable("Heard", false).
		Signal("OnEnemySeen", "HasTarget", "1").
		Translate("Root:Shoot", "SoldierShoot").
		Root(dsl.Priority("Root",
			dsl.Leaf("Shoot").When("HasTarget"),
			dsl.StateMachine("Alert",
				dsl.State("Calm", dsl.Leaf("Wait")).To("Alarmed", "Heard"),
				dsl.State("Alarmed", dsl.Leaf("Search")),
			),
		)).
		Build()
*/
package dsl
