/*
Package progress broadcasts lifecycle, progress, warning and failure events to
registered listeners.

	+----------+      +-----------+
	|  emitter | ---> |   List    | ---> Listener 1 (Recorder)
	+----------+      | (fan-out) | ---> Listener 2 (console)
	                  +-----------+ ---> Listener 3 (Func)

🎯 Purpose:
  - Anything implementing Listener can register
  - List delivers every call synchronously, in registration order
  - A listener that panics is recovered and logged, the rest still receive the event

📦 Implementations:
- List: the broadcaster; itself a Listener, so lists nest
- Recorder: thread-safe default listener keeping state, history and an event log
- Func: adapts a func(Event) into a Listener

🔍 Example:

	sink := progress.NewList("collect", logger)
	rec := progress.NewRecorder("collect", logger)
	sink.Add(rec)
	sink.SetStarted()
	sink.SetProgress(50)
	rec.State().Percent // 50
*/
package progress
