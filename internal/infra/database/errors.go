package database

import "fmt"

// Custom errors
var ErrUserNotFound = fmt.Errorf("user not found")
var ErrQuestNotFound = fmt.Errorf("quest not found")
var ErrNotificationNotFound = fmt.Errorf("notification not found")
var ErrTimetableNotFound = fmt.Errorf("timetable not found")
