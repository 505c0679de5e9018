package main

import (
	"github.com/spf13/cobra"
)

func newCoursesCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "courses",
		Short: "List courses with curriculum data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			courses, err := rt.app.Curriculum.ListCourses(cmd.Context())
			if err != nil {
				return err
			}
			return rt.print(courses)
		},
	}
}

func newTraverseCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "traverse <course>",
		Short: "Print modules, topics and subtopics in curriculum order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := rt.app.Curriculum.Traverse(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return rt.print(view)
		},
	}
}

func newPrereqsCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "prereqs <course> <topic>",
		Short: "List the subtopics gating a topic",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			subs, err := rt.app.Curriculum.Query().PrerequisitesOf(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return rt.print(subs)
		},
	}
}

func newNextModuleCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "next-module <course> <module>",
		Short: "Print the module after the given one",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			next, err := rt.app.Curriculum.Query().NextModule(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return rt.print(next)
		},
	}
}

func newNextItemCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "next-item <course> <topic>",
		Short: "Print the topic after the given one in curriculum order",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			next, err := rt.app.Curriculum.NextCurriculumItem(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return rt.print(next)
		},
	}
}

func newTopicCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "topic <course> <topic>",
		Short: "Print a topic with its module, prerequisites and next topic",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tc, err := rt.app.Curriculum.TopicContext(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return rt.print(tc)
		},
	}
}

func newPathCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "path <course> <topic>",
		Short: "Print the learning path to a topic",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := rt.app.Curriculum.LearningPath(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return rt.print(path)
		},
	}
}

func newMissingCmd(rt *runtime) *cobra.Command {
	var completed []string
	cmd := &cobra.Command{
		Use:   "missing <course> <topic>",
		Short: "List prerequisites not yet completed",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := rt.app.Curriculum.DetectMissingPrerequisites(cmd.Context(), args[0], args[1], completed)
			if err != nil {
				return err
			}
			return rt.print(res)
		},
	}
	cmd.Flags().StringSliceVar(&completed, "completed", nil, "Completed subtopic ids or names")
	return cmd
}

func newVisualizeCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "visualize <course>",
		Short: "Export the course graph as nodes, edges and stats",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			viz, err := rt.app.Curriculum.Visualization(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return rt.print(viz)
		},
	}
}

func newDeleteCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <course>",
		Short: "Delete every node of a course",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := rt.app.Curriculum.DeleteCourse(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return rt.print(res)
		},
	}
}

func newLookupCmd(rt *runtime) *cobra.Command {
	var syllabus string
	var all bool
	cmd := &cobra.Command{
		Use:   "lookup <course> <filename>",
		Short: "Resolve a material filename to its syllabus context",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := rt.app.Curriculum.IndexSyllabus(args[0], syllabus)
			if err != nil {
				return err
			}
			if all {
				return rt.print(idx.LookupAll(args[1]))
			}
			sc, _ := idx.Lookup(args[1])
			return rt.print(map[string]any{
				"filename": args[1],
				"context":  sc,
				"metadata": idx.EnrichMetadata(nil, args[1]),
			})
		},
	}
	cmd.Flags().StringVar(&syllabus, "syllabus", "", "Unified syllabus table to index (required)")
	cmd.Flags().BoolVar(&all, "all", false, "Return every citing lecture instead of the first")
	_ = cmd.MarkFlagRequired("syllabus")
	return cmd
}
