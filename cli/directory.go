package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/maastricht-university/nursecheck-triage/models"
)

var (
	newPatient models.Patient
	newNurse   models.Nurse
)

var patientCmd = &cobra.Command{
	Use:   "patient",
	Short: "Manage the patient directory",
}

var patientAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a patient, or print the id of an existing match",
	Long: `add registers a patient. A patient with the same name, date of birth and
e-mail is treated as the same person and its id is returned instead.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if newPatient.FirstName == "" {
			return fmt.Errorf("--first-name is required")
		}
		a, err := openStores()
		if err != nil {
			return err
		}
		defer a.close()

		id, err := a.dir.CreatePatient(cmd.Context(), newPatient)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), id)
		return nil
	},
}

var patientAssignCmd = &cobra.Command{
	Use:   "assign <patient-id> <nurse-id>",
	Short: "Assign a nurse to a patient",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openStores()
		if err != nil {
			return err
		}
		defer a.close()
		return a.dir.AssignNurse(cmd.Context(), args[0], args[1])
	},
}

var patientSimilarCmd = &cobra.Command{
	Use:   "similar <patient-id>",
	Short: "List patients whose latest note shares words with this patient's",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openStores()
		if err != nil {
			return err
		}
		defer a.close()

		cases, err := a.dir.Similar(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if len(cases) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No similar cases.")
			return nil
		}
		for _, c := range cases {
			fmt.Fprintf(cmd.OutOrStdout(), "%-36s %3d  %s  %s\n", c.PatientID, c.Score, c.Name, c.Note)
		}
		return nil
	},
}

var nurseCmd = &cobra.Command{
	Use:   "nurse",
	Short: "Manage nurses",
}

var nurseAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a nurse, or print the id of an existing match",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if newNurse.FirstName == "" {
			return fmt.Errorf("--first-name is required")
		}
		a, err := openStores()
		if err != nil {
			return err
		}
		defer a.close()

		id, err := a.dir.CreateNurse(cmd.Context(), newNurse)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), id)
		return nil
	},
}

func init() {
	f := patientAddCmd.Flags()
	f.StringVar(&newPatient.FirstName, "first-name", "", "first name")
	f.StringVar(&newPatient.LastName, "last-name", "", "last name")
	f.IntVar(&newPatient.Age, "age", 0, "age in years")
	f.StringVar(&newPatient.DOB, "dob", "", "date of birth")
	f.StringVar(&newPatient.Address, "address", "", "home address")
	f.Float64Var(&newPatient.Weight, "weight", 0, "weight in lbs")
	f.StringVar(&newPatient.BloodType, "blood-type", "", "blood type")
	f.StringVar(&newPatient.Phone, "phone", "", "phone number")
	f.StringVar(&newPatient.Email, "email", "", "e-mail address")
	f.StringVar(&newPatient.Gender, "gender", "", "gender")
	f.StringVar(&newPatient.RoomNumber, "room", "", "room number")
	f.StringVar(&newPatient.AssignNurseID, "nurse", "", "assigned nurse id")

	f = nurseAddCmd.Flags()
	f.StringVar(&newNurse.FirstName, "first-name", "", "first name")
	f.StringVar(&newNurse.LastName, "last-name", "", "last name")
	f.IntVar(&newNurse.Age, "age", 0, "age in years")
	f.StringVar(&newNurse.Shift, "shift", "", "shift, e.g. 9am-5pm")
	f.StringVar(&newNurse.Phone, "phone", "", "phone number")
	f.StringVar(&newNurse.Email, "email", "", "e-mail address")

	patientCmd.AddCommand(patientAddCmd, patientAssignCmd, patientSimilarCmd)
	nurseCmd.AddCommand(nurseAddCmd)
	rootCmd.AddCommand(patientCmd, nurseCmd)
}
